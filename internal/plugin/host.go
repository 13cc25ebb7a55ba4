// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/tallybot/tallybot/pkg/errutil"
)

// Host owns the full set of plugin runtimes and drives batch lifecycle
// operations. It is also the service locator plugins use to look up enabled
// dependencies at runtime.
//
// All lifecycle transitions run strictly sequentially on the goroutine that
// calls LoadAll/EnableAll/Shutdown/Reload; later runtimes' guards depend on
// earlier runtimes' final status. Lookup methods are safe to call from plugin
// goroutines concurrently with transitions.
type Host struct {
	mu       sync.RWMutex
	runtimes []*Runtime // discovery order
	order    []*Runtime // computed load order
	loader   Loader
	logger   *slog.Logger
	metrics  *Metrics

	// services has its own lock so plugins can register handles from
	// inside lifecycle hooks, while the host holds the transition lock.
	svcMu    sync.RWMutex
	services map[string]map[string]any
}

// HostOption configures the Host.
type HostOption func(*Host)

// WithLogger sets the logger used by the host and its runtimes.
func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMetrics sets the Prometheus metrics recorded by the host.
func WithMetrics(m *Metrics) HostOption {
	return func(h *Host) {
		h.metrics = m
	}
}

// NewHost resolves the descriptors into runtimes and returns a host owning
// them. It fails only on structural descriptor problems (duplicate module
// IDs); per-plugin resolution failures are recorded on the runtimes and
// surface later as skipped loads.
func NewHost(loader Loader, descriptors []Descriptor, opts ...HostOption) (*Host, error) {
	h := &Host{
		loader:   loader,
		logger:   slog.Default(),
		services: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(h)
	}

	runtimes, err := Resolve(descriptors, loader, h.logger)
	if err != nil {
		return nil, err
	}
	h.runtimes = runtimes

	for _, rt := range runtimes {
		rt := rt
		rt.detach = func() { h.removeServices(rt.desc.ModuleID) }
		rt.onChange = func(r *Runtime) { h.metrics.observeStatus(r) }
		h.metrics.observeStatus(rt)
	}

	return h, nil
}

// LoadAll computes the load order and loads every resolvable plugin in it.
// Individual load failures are logged and do not stop the remaining
// iteration; only a structural resolution failure (a dependency cycle)
// aborts startup.
func (h *Host) LoadAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := LoadOrder(h.runtimes)
	if err != nil {
		h.logger.Error("failed to resolve plugin load order, no plugin was loaded")
		return err
	}
	h.order = order

	for _, rt := range order {
		if err := rt.Load(ctx); err != nil {
			h.metrics.recordFailure(rt.desc.ModuleID, "load")
			errutil.LogError(h.logger, "error while loading plugin", err)
		}
	}
	return nil
}

// EnableAll enables every loaded plugin in load order. A plugin whose
// dependency failed to reach enabled fails its own guard check and is
// logged, not silently skipped.
func (h *Host) EnableAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rt := range h.order {
		if rt.Status() == StatusEnabled {
			continue
		}
		if err := rt.Enable(ctx); err != nil {
			h.metrics.recordFailure(rt.desc.ModuleID, "enable")
			errutil.LogError(h.logger, "error while enabling plugin", err)
		}
	}
	return nil
}

// Shutdown disables every enabled plugin in reverse load order, then unloads
// every loaded plugin in a second reversed pass. Every step is independently
// error-isolated.
func (h *Host) Shutdown(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.order) - 1; i >= 0; i-- {
		rt := h.order[i]
		if rt.Status() != StatusEnabled {
			continue
		}
		if err := rt.Disable(ctx); err != nil {
			h.metrics.recordFailure(rt.desc.ModuleID, "disable")
			errutil.LogError(h.logger, "error while disabling plugin", err)
		}
	}

	for i := len(h.order) - 1; i >= 0; i-- {
		rt := h.order[i]
		if rt.Status() != StatusLoaded {
			continue
		}
		if err := rt.Unload(ctx); err != nil {
			h.metrics.recordFailure(rt.desc.ModuleID, "unload")
			errutil.LogError(h.logger, "error while unloading plugin", err)
		}
	}

	h.logger.Info("plugin shutdown completed")
}

// find returns the runtime matching name against plugin name or module ID.
func (h *Host) find(name string) *Runtime {
	for _, rt := range h.runtimes {
		if rt.desc.Name == name || rt.desc.ModuleID == name {
			return rt
		}
	}
	return nil
}

// Get returns the live instance of the named plugin, failing if the plugin
// is unknown or its status is below min. Callers assert the status they need
// at the call site instead of assuming load order guarantees availability.
func (h *Host) Get(name string, min Status) (Plugin, error) {
	rt := h.find(name)
	if rt == nil {
		return nil, ErrNotFound(name)
	}
	if !rt.Status().AtLeast(min) {
		return nil, ErrState(rt.desc.ModuleID, rt.Status(), min)
	}
	return rt.Instance(), nil
}

// GetRuntime returns the runtime for the named plugin.
func (h *Host) GetRuntime(name string) (*Runtime, error) {
	rt := h.find(name)
	if rt == nil {
		return nil, ErrNotFound(name)
	}
	return rt, nil
}

// Runtimes returns all runtimes in discovery order.
func (h *Host) Runtimes() []*Runtime {
	out := make([]*Runtime, len(h.runtimes))
	copy(out, h.runtimes)
	return out
}

// Match returns the runtimes whose name or module ID matches the glob
// pattern, in discovery order.
func (h *Host) Match(pattern string) ([]*Runtime, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.With("pattern", pattern).
			Wrapf(err, "invalid plugin pattern %q", pattern)
	}

	var out []*Runtime
	for _, rt := range h.runtimes {
		if g.Match(rt.desc.Name) || g.Match(rt.desc.ModuleID) {
			out = append(out, rt)
		}
	}
	return out, nil
}

// Reload reloads the named plugin, replacing its instance. After a reload,
// dependents are re-checked: a dependent that stayed enabled across the
// reload may still hold a reference to the discarded instance and is not
// re-enabled automatically, only reported.
func (h *Host) Reload(ctx context.Context, name string, force bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rt := h.find(name)
	if rt == nil {
		return ErrNotFound(name)
	}

	err := rt.Reload(ctx, force)
	if err != nil {
		h.metrics.recordReload(rt.desc.ModuleID, "failure")
		return err
	}
	h.metrics.recordReload(rt.desc.ModuleID, "success")

	for _, dep := range rt.Dependents() {
		if !dep.Status().AtLeast(StatusLoaded) {
			continue
		}
		if dep.Status() == StatusEnabled {
			h.logger.Warn("dependent plugin still holds the previous instance, reload it to pick up the new one",
				"plugin", dep.desc.Name,
				"module", dep.desc.ModuleID,
				"dependency", rt.desc.ModuleID)
		}
	}
	return nil
}

// RegisterService exposes a named service handle for a plugin. Services are
// detached automatically when the plugin is disabled.
func (h *Host) RegisterService(moduleID, key string, service any) error {
	h.svcMu.Lock()
	defer h.svcMu.Unlock()

	// The runtime set is immutable after construction, so find needs no
	// transition lock here.
	if h.find(moduleID) == nil {
		return ErrNotFound(moduleID)
	}
	if h.services[moduleID] == nil {
		h.services[moduleID] = make(map[string]any)
	}
	h.services[moduleID][key] = service
	return nil
}

// Service returns a service handle registered by a plugin.
func (h *Host) Service(moduleID, key string) (any, bool) {
	h.svcMu.RLock()
	defer h.svcMu.RUnlock()

	svc, ok := h.services[moduleID][key]
	return svc, ok
}

func (h *Host) removeServices(moduleID string) {
	h.svcMu.Lock()
	defer h.svcMu.Unlock()

	delete(h.services, moduleID)
}

// Snapshot summarizes the host state for status reporting and readiness.
type Snapshot struct {
	Total   int
	Counts  map[Status]int
	Enabled []string
}

// Snapshot returns per-status plugin counts and the sorted names of enabled
// plugins.
func (h *Host) Snapshot() Snapshot {
	snap := Snapshot{
		Total:  len(h.runtimes),
		Counts: make(map[Status]int),
	}
	for _, rt := range h.runtimes {
		snap.Counts[rt.Status()]++
		if rt.Status() == StatusEnabled {
			snap.Enabled = append(snap.Enabled, rt.desc.Name)
		}
	}
	sort.Strings(snap.Enabled)
	return snap
}

// Ready reports whether every non-failed resolvable plugin reached enabled.
// Crashed plugins degrade the status gauge but do not hold readiness down:
// the process is serving with the plugins it has. Used as the readiness check
// for the observability server.
func (h *Host) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rt := range h.order {
		if s := rt.Status(); s != StatusEnabled && s != StatusCrashed {
			return false
		}
	}
	return len(h.order) > 0 || len(h.runtimes) == 0
}
