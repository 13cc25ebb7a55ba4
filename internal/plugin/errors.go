// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"github.com/samber/oops"
)

// Error codes for plugin lifecycle failures.
const (
	CodeNotFound   = "PLUGIN_NOT_FOUND"
	CodeDependency = "PLUGIN_DEPENDENCY"
	CodeLoad       = "PLUGIN_LOAD"
)

// ErrNotFound creates an error for a module identifier with no implementation.
func ErrNotFound(moduleID string) error {
	return oops.Code(CodeNotFound).
		With("module", moduleID).
		Errorf("plugin %s was not found", moduleID)
}

// ErrMissingDependencies creates a resolver error for unresolved dependency names.
func ErrMissingDependencies(moduleID string, missing []string) error {
	return oops.Code(CodeDependency).
		With("module", moduleID).
		With("missing", missing).
		Errorf("plugin %s has missing dependencies: %v", moduleID, missing)
}

// ErrCycle creates a resolver error for a circular dependency graph.
func ErrCycle(remaining []string) error {
	return oops.Code(CodeDependency).
		With("remaining", remaining).
		Errorf("dependency cycle detected among plugins: %v", remaining)
}

// ErrNoRoot creates a resolver error for a graph without a dependency-free plugin.
func ErrNoRoot() error {
	return oops.Code(CodeDependency).
		Errorf("failed to resolve dependency tree root: no plugin without dependencies")
}

// ErrDuplicateModule creates a resolver error for a module ID declared twice.
func ErrDuplicateModule(moduleID string) error {
	return oops.Code(CodeDependency).
		With("module", moduleID).
		Errorf("duplicate plugin module ID %s", moduleID)
}

// ErrTransition creates an error for a lifecycle guard violation.
func ErrTransition(moduleID, msg string) error {
	return oops.Code(CodeLoad).
		With("module", moduleID).
		Errorf("plugin %s: %s", moduleID, msg)
}

// ErrDependencyState creates an error for a dependency below the required status.
func ErrDependencyState(moduleID, depID string, got, want Status) error {
	return oops.Code(CodeLoad).
		With("module", moduleID).
		With("dependency", depID).
		With("status", got.String()).
		With("required", want.String()).
		Errorf("plugin %s: dependency %s is %s, requires at least %s", moduleID, depID, got, want)
}

// ErrHook wraps a failure thrown from inside a lifecycle hook.
func ErrHook(moduleID, hook string, cause error) error {
	return oops.Code(CodeLoad).
		With("module", moduleID).
		With("hook", hook).
		Wrapf(cause, "plugin %s crashed during %s", moduleID, hook)
}

// ErrState creates an error for a plugin found below a required status.
func ErrState(moduleID string, got, want Status) error {
	return oops.Code(CodeLoad).
		With("module", moduleID).
		With("status", got.String()).
		With("required", want.String()).
		Errorf("plugin %s has status %s, required at least %s", moduleID, got, want)
}

// hasCode reports whether err carries the given oops error code.
func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

// IsNotFound reports whether err is a plugin-not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsDependencyError reports whether err is a resolver dependency error.
func IsDependencyError(err error) bool {
	return hasCode(err, CodeDependency)
}

// IsLoadError reports whether err is a lifecycle/load error.
func IsLoadError(err error) bool {
	return hasCode(err, CodeLoad)
}
