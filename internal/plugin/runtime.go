// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Runtime tracks the lifecycle of one discovered plugin: its status, its
// resolved dependency edges, and the live instance once loaded. A Runtime is
// created once per descriptor and lives for the process lifetime; only the
// instance is replaced on reload.
//
// Transitions must be driven from a single goroutine (see Host); plugins
// must not drive another runtime's transitions directly. Status and instance
// reads are safe from other goroutines, so a plugin-spawned worker can use
// the host's lookups concurrently with lifecycle operations.
type Runtime struct {
	desc Descriptor

	// mu guards status, instance, and instanceID against concurrent
	// readers; transitions themselves are serialized by the host.
	mu     sync.RWMutex
	status Status

	// Edges are wired once by Resolve and never re-resolved.
	dependencies []*Runtime
	dependents   []*Runtime
	unresolved   []string

	instance   Plugin
	instanceID ulid.ULID

	loader Loader
	logger *slog.Logger

	// detach is installed by the host and runs before OnDisable to remove
	// anything the plugin registered with the host. It is not rolled back
	// if OnDisable fails afterwards.
	detach func()

	// onChange is installed by the host to keep metrics in step with
	// status transitions.
	onChange func(*Runtime)
}

// Descriptor returns the plugin's static identity.
func (r *Runtime) Descriptor() Descriptor { return r.desc }

// Status returns the current lifecycle status.
func (r *Runtime) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Dependencies returns the resolved dependency runtimes.
func (r *Runtime) Dependencies() []*Runtime { return r.dependencies }

// Dependents returns the runtimes that depend on this one.
func (r *Runtime) Dependents() []*Runtime { return r.dependents }

// Unresolved returns the declared dependency names that could not be
// resolved, recorded for diagnostics.
func (r *Runtime) Unresolved() []string { return r.unresolved }

// Instance returns the live plugin instance, or nil if not loaded.
func (r *Runtime) Instance() Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instance
}

// InstanceID returns the ULID assigned to the current instance at load time.
func (r *Runtime) InstanceID() ulid.ULID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instanceID
}

func (r *Runtime) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
	if r.onChange != nil {
		r.onChange(r)
	}
}

func (r *Runtime) setInstance(p Plugin, id ulid.ULID) {
	r.mu.Lock()
	r.instance = p
	r.instanceID = id
	r.mu.Unlock()
}

// callHook invokes a lifecycle hook, converting a panic into an error so a
// misbehaving plugin cannot take down the host.
func callHook(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

// Load instantiates the plugin implementation and invokes its OnLoad hook.
// It requires the current status to be at most unloaded and every dependency
// to be at least loaded. A hook failure moves the runtime to crashed; a guard
// violation leaves the status unchanged.
func (r *Runtime) Load(ctx context.Context) error {
	id := r.desc.ModuleID
	if len(r.unresolved) > 0 {
		return ErrMissingDependencies(id, r.unresolved)
	}
	if r.status > StatusUnloaded {
		return ErrTransition(id, "already loaded with status "+r.status.String())
	}
	for _, dep := range r.dependencies {
		if !dep.status.AtLeast(StatusLoaded) {
			return ErrDependencyState(id, dep.desc.ModuleID, dep.status, StatusLoaded)
		}
	}

	r.logger.Debug("loading plugin", "plugin", r.desc.Name, "module", id)

	instance, err := r.loader.Instantiate(id)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		r.setStatus(StatusCrashed)
		return ErrHook(id, "instantiate", err)
	}

	if err := callHook(ctx, instance.OnLoad); err != nil {
		r.setStatus(StatusCrashed)
		return ErrHook(id, "on_load", err)
	}

	r.setInstance(instance, ulid.Make())
	r.setStatus(StatusLoaded)
	r.logger.Debug("loaded plugin",
		"plugin", r.desc.Name,
		"module", id,
		"instance_id", r.instanceID.String())
	return nil
}

// Enable invokes the plugin's OnEnable hook. It requires the status to be
// exactly loaded and every dependency to be enabled.
func (r *Runtime) Enable(ctx context.Context) error {
	id := r.desc.ModuleID
	if r.status == StatusEnabled {
		return ErrTransition(id, "already enabled")
	}
	if r.status != StatusLoaded {
		return ErrTransition(id, "not loaded, status is "+r.status.String())
	}
	for _, dep := range r.dependencies {
		if !dep.status.AtLeast(StatusEnabled) {
			return ErrDependencyState(id, dep.desc.ModuleID, dep.status, StatusEnabled)
		}
	}

	r.logger.Info("enabling plugin", "plugin", r.desc.Name, "module", id)
	if err := callHook(ctx, r.instance.OnEnable); err != nil {
		r.setStatus(StatusCrashed)
		return ErrHook(id, "on_enable", err)
	}
	r.setStatus(StatusEnabled)
	r.logger.Info("enabled plugin", "plugin", r.desc.Name, "module", id)
	return nil
}

// Disable detaches any resources the plugin registered with the host and
// invokes its OnDisable hook. It requires the status to be exactly enabled.
// Detachment already performed is not rolled back on hook failure.
func (r *Runtime) Disable(ctx context.Context) error {
	id := r.desc.ModuleID
	if r.status != StatusEnabled {
		return ErrTransition(id, "cannot disable, status is "+r.status.String())
	}

	r.logger.Info("disabling plugin", "plugin", r.desc.Name, "module", id)
	if r.detach != nil {
		r.detach()
	}
	if err := callHook(ctx, r.instance.OnDisable); err != nil {
		r.setStatus(StatusCrashed)
		return ErrHook(id, "on_disable", err)
	}
	r.setStatus(StatusLoaded)
	r.logger.Info("disabled plugin", "plugin", r.desc.Name, "module", id)
	return nil
}

// Unload invokes the plugin's OnUnload hook and discards the instance. It
// requires the status to be exactly loaded.
func (r *Runtime) Unload(ctx context.Context) error {
	id := r.desc.ModuleID
	if r.status != StatusLoaded {
		return ErrTransition(id, "cannot unload, status is "+r.status.String())
	}

	if err := callHook(ctx, r.instance.OnUnload); err != nil {
		r.setStatus(StatusCrashed)
		return ErrHook(id, "on_unload", err)
	}
	r.setInstance(nil, r.instanceID)
	r.setStatus(StatusUnloaded)
	return nil
}

// Reload runs disable (if enabled), unload (if loaded), then load and enable,
// replacing the instance. With force set, failures in the teardown steps are
// logged and ignored; otherwise the first failure aborts the sequence,
// leaving the status at whatever the failed step produced.
//
// A crashed runtime may be recovered this way; the engine never retries on
// its own.
func (r *Runtime) Reload(ctx context.Context, force bool) error {
	id := r.desc.ModuleID
	r.logger.Info("reloading plugin", "plugin", r.desc.Name, "module", id, "force", force)

	if r.status == StatusEnabled {
		if err := r.Disable(ctx); err != nil {
			if !force {
				return ErrHook(id, "reload", err)
			}
			r.logger.Warn("plugin failed while disabling, ignoring",
				"plugin", r.desc.Name, "error", err)
		}
	}
	if r.status == StatusLoaded {
		if err := r.Unload(ctx); err != nil {
			if !force {
				return ErrHook(id, "reload", err)
			}
			r.logger.Warn("plugin failed while unloading, ignoring",
				"plugin", r.desc.Name, "error", err)
		}
	}
	if err := r.Load(ctx); err != nil {
		return err
	}
	if err := r.Enable(ctx); err != nil {
		return err
	}
	r.logger.Info("reloaded plugin", "plugin", r.desc.Name, "module", id)
	return nil
}
