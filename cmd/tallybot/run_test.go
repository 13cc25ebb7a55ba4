// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybot/tallybot/internal/config"
	"github.com/tallybot/tallybot/internal/plugin"
)

func TestBuiltinDescriptors(t *testing.T) {
	descs := builtinDescriptors()
	assert.Contains(t, descs, "tallybot.heartbeat")
	assert.Contains(t, descs, "tallybot.chatrelay")
}

func TestSelectDescriptors_PreservesOrder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	descs := selectDescriptors([]string{"tallybot.chatrelay", "tallybot.heartbeat"}, logger)

	require.Len(t, descs, 2)
	assert.Equal(t, "tallybot.chatrelay", descs[0].ModuleID)
	assert.Equal(t, "tallybot.heartbeat", descs[1].ModuleID)
}

func TestSelectDescriptors_SkipsUnknown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	descs := selectDescriptors([]string{"tallybot.nope", "tallybot.heartbeat"}, logger)

	require.Len(t, descs, 1)
	assert.Equal(t, "tallybot.heartbeat", descs[0].ModuleID)
}

func TestBuildHost_StartsAndStopsPlugins(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins = []string{"tallybot.heartbeat", "tallybot.chatrelay"}
	cfg.Heartbeat.Interval = time.Hour

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host, err := buildHost(&cfg, logger, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, host.LoadAll(ctx))
	require.NoError(t, host.EnableAll(ctx))

	// No chat endpoint configured: the relay enables but stays offline.
	snap := host.Snapshot()
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, []string{"chatrelay", "heartbeat"}, snap.Enabled)
	assert.True(t, host.Ready())

	host.Shutdown(ctx)
	snap = host.Snapshot()
	assert.Equal(t, 2, snap.Counts[plugin.StatusUnloaded])
}

func TestBuildHost_NoPluginsConfigured(t *testing.T) {
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	host, err := buildHost(&cfg, logger, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, host.LoadAll(ctx))
	require.NoError(t, host.EnableAll(ctx))
	assert.Equal(t, 0, host.Snapshot().Total)
}
