// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tallybot/tallybot/internal/plugin"
)

func TestStatus_Ordering(t *testing.T) {
	assert.True(t, plugin.StatusMissingDependencies < plugin.StatusCrashed)
	assert.True(t, plugin.StatusCrashed < plugin.StatusUnloaded)
	assert.True(t, plugin.StatusUnloaded < plugin.StatusLoaded)
	assert.True(t, plugin.StatusLoaded < plugin.StatusEnabled)
}

func TestStatus_AtLeast(t *testing.T) {
	assert.True(t, plugin.StatusEnabled.AtLeast(plugin.StatusLoaded))
	assert.True(t, plugin.StatusLoaded.AtLeast(plugin.StatusLoaded))
	assert.False(t, plugin.StatusUnloaded.AtLeast(plugin.StatusLoaded))
	assert.False(t, plugin.StatusCrashed.AtLeast(plugin.StatusUnloaded))
	assert.True(t, plugin.StatusCrashed.AtLeast(plugin.StatusMissingDependencies))
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status plugin.Status
		want   string
	}{
		{plugin.StatusMissingDependencies, "missing-dependencies"},
		{plugin.StatusCrashed, "crashed"},
		{plugin.StatusUnloaded, "unloaded"},
		{plugin.StatusLoaded, "loaded"},
		{plugin.StatusEnabled, "enabled"},
		{plugin.Status(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
