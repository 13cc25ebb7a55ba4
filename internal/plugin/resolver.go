// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"log/slog"
)

// Resolve creates a runtime per descriptor and wires bidirectional dependency
// edges. Descriptor order is preserved; it is the deterministic tie-break for
// LoadOrder. A wrapper with unresolved dependency names is marked
// missing-dependencies, and the mark is propagated to transitive dependents
// with a fixpoint cascade, so multi-hop chains are handled regardless of
// discovery order.
//
// Resolve fails only on structural problems with the descriptor set itself
// (duplicate module IDs); per-plugin resolution failures are recorded on the
// affected runtimes and logged.
func Resolve(descriptors []Descriptor, loader Loader, logger *slog.Logger) ([]*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	runtimes := make([]*Runtime, 0, len(descriptors))
	byModule := make(map[string]*Runtime, len(descriptors))
	for _, desc := range descriptors {
		if _, dup := byModule[desc.ModuleID]; dup {
			return nil, ErrDuplicateModule(desc.ModuleID)
		}
		rt := &Runtime{
			desc:   desc,
			status: StatusUnloaded,
			loader: loader,
			logger: logger,
		}
		runtimes = append(runtimes, rt)
		byModule[desc.ModuleID] = rt
	}

	for _, rt := range runtimes {
		for _, name := range rt.desc.DependsOn {
			dep, ok := byModule[name]
			if !ok {
				rt.unresolved = append(rt.unresolved, name)
				continue
			}
			rt.dependencies = append(rt.dependencies, dep)
			dep.dependents = append(dep.dependents, rt)
		}
		if len(rt.unresolved) > 0 {
			rt.status = StatusMissingDependencies
			logger.Error("failed to resolve dependencies for plugin",
				"plugin", rt.desc.Name,
				"module", rt.desc.ModuleID,
				"missing", rt.unresolved)
		}
	}

	cascadeMissing(runtimes, logger)
	return runtimes, nil
}

// cascadeMissing propagates missing-dependencies status to dependents until a
// full scan changes nothing. Each scan marks at least one runtime or stops,
// so the loop is bounded by the number of runtimes.
func cascadeMissing(runtimes []*Runtime, logger *slog.Logger) {
	for {
		changed := false
		for _, rt := range runtimes {
			if rt.status == StatusMissingDependencies {
				continue
			}
			for _, dep := range rt.dependencies {
				if dep.status == StatusMissingDependencies {
					rt.status = StatusMissingDependencies
					changed = true
					logger.Warn("plugin disabled by failed dependency",
						"plugin", rt.desc.Name,
						"module", rt.desc.ModuleID,
						"dependency", dep.desc.ModuleID)
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

// LoadOrder computes a total order over the resolvable runtimes such that
// every runtime appears after all of its dependencies. Runtimes already
// marked missing-dependencies are excluded. A graph with no dependency-free
// root or with a circular reference yields a dependency error and no partial
// order.
func LoadOrder(runtimes []*Runtime) ([]*Runtime, error) {
	eligible := make([]*Runtime, 0, len(runtimes))
	for _, rt := range runtimes {
		if rt.status != StatusMissingDependencies {
			eligible = append(eligible, rt)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	hasRoot := false
	for _, rt := range eligible {
		if len(rt.dependencies) == 0 {
			hasRoot = true
			break
		}
	}
	if !hasRoot {
		return nil, ErrNoRoot()
	}

	placed := make(map[*Runtime]bool, len(eligible))
	order := make([]*Runtime, 0, len(eligible))
	remaining := eligible

	for len(remaining) > 0 {
		next := -1
		for i, rt := range remaining {
			ready := true
			for _, dep := range rt.dependencies {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				next = i
				break
			}
		}
		if next < 0 {
			names := make([]string, len(remaining))
			for i, rt := range remaining {
				names[i] = rt.desc.ModuleID
			}
			return nil, ErrCycle(names)
		}
		rt := remaining[next]
		remaining = append(remaining[:next:next], remaining[next+1:]...)
		placed[rt] = true
		order = append(order, rt)
	}

	return order, nil
}
