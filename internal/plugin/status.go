// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

// Status is the lifecycle state of a plugin runtime. Values are totally
// ordered: a status "satisfies" a requirement when it compares >= to it.
type Status int

// Lifecycle states, lowest to highest.
const (
	StatusMissingDependencies Status = -1
	StatusCrashed             Status = 0
	StatusUnloaded            Status = 1
	StatusLoaded              Status = 2
	StatusEnabled             Status = 3
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusMissingDependencies:
		return "missing-dependencies"
	case StatusCrashed:
		return "crashed"
	case StatusUnloaded:
		return "unloaded"
	case StatusLoaded:
		return "loaded"
	case StatusEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// AtLeast reports whether s satisfies the minimum status min.
func (s Status) AtLeast(min Status) bool {
	return s >= min
}
