// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package plugin implements the plugin lifecycle and dependency-resolution
// engine: descriptor parsing, load-order computation, the per-plugin state
// machine, and the host that drives batch startup and shutdown.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Descriptor is the static, parsed identity of a plugin. It is produced once
// per discovered module and never mutated afterwards.
type Descriptor struct {
	Name      string   `yaml:"name" json:"name"`
	ModuleID  string   `yaml:"module" json:"module"`
	Version   string   `yaml:"version" json:"version"`
	Author    string   `yaml:"author,omitempty" json:"author,omitempty"`
	DependsOn []string `yaml:"depends-on,omitempty" json:"depends-on,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with a lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// modulePattern validates module IDs: dot-separated name segments,
// e.g. "tallybot.sheet".
var modulePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*(\.[a-z][a-z0-9-]*)*$`)

// ParseManifest parses and validates a plugin manifest.
func ParseManifest(data []byte) (*Descriptor, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// MustParseManifest parses a manifest and panics on error. Intended for the
// embedded manifests of built-in plugins, where a parse failure is a
// programming error.
func MustParseManifest(data []byte) Descriptor {
	d, err := ParseManifest(data)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded plugin manifest: %v", err))
	}
	return *d
}

// Validate checks descriptor constraints.
func (d *Descriptor) Validate() error {
	if d.Name == "" || !namePattern.MatchString(d.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", d.Name)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(d.Name))
	}

	if d.ModuleID == "" || !modulePattern.MatchString(d.ModuleID) {
		return fmt.Errorf("module %q must be dot-separated lowercase segments", d.ModuleID)
	}

	if d.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(d.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", d.Version, err)
	}

	seen := make(map[string]struct{}, len(d.DependsOn))
	for _, dep := range d.DependsOn {
		if dep == d.ModuleID {
			return fmt.Errorf("module %s depends on itself", d.ModuleID)
		}
		if !modulePattern.MatchString(dep) {
			return fmt.Errorf("dependency %q must be dot-separated lowercase segments", dep)
		}
		if _, dup := seen[dep]; dup {
			return fmt.Errorf("dependency %q is declared twice", dep)
		}
		seen[dep] = struct{}{}
	}

	return nil
}
