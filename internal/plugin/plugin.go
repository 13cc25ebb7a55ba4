// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"context"
	"sort"
	"sync"
)

// Plugin is the capability contract implemented by every plugin. The host
// calls exactly one hook at a time and awaits full completion before invoking
// the next.
//
// OnLoad and OnUnload must be fast and local. OnEnable and OnDisable may
// suspend on I/O (opening connections, logging in to remote services). Hooks
// receive the context of the batch operation that triggered them; the engine
// itself imposes no per-hook timeout, so callers can bound a hook by passing
// a deadline context to the host operation.
type Plugin interface {
	OnLoad(ctx context.Context) error
	OnEnable(ctx context.Context) error
	OnDisable(ctx context.Context) error
	OnUnload(ctx context.Context) error
}

// Loader instantiates the implementation behind a module identifier. It is
// the Go stand-in for reflective entry-point discovery: implementations are
// statically registered rather than scanned.
type Loader interface {
	Instantiate(moduleID string) (Plugin, error)
}

// Factory constructs a fresh plugin instance. Called once per load; the
// engine never reuses an instance across a reload.
type Factory func() (Plugin, error)

// Registry is the default Loader: an explicit map of module IDs to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates a module ID with a factory. Registering the same module
// ID twice is an error.
func (r *Registry) Register(moduleID string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[moduleID]; exists {
		return ErrDuplicateModule(moduleID)
	}
	r.factories[moduleID] = factory
	return nil
}

// Instantiate creates a new instance of the plugin registered under moduleID.
func (r *Registry) Instantiate(moduleID string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[moduleID]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound(moduleID)
	}
	return factory()
}

// Modules returns the registered module IDs, sorted for deterministic output.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
