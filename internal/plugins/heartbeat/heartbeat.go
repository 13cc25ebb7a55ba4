// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package heartbeat is a built-in plugin that emits a periodic liveness log
// line while enabled.
package heartbeat

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallybot/tallybot/internal/plugin"
)

//go:embed plugin.yaml
var manifestData []byte

// Descriptor returns the plugin's parsed manifest.
func Descriptor() plugin.Descriptor {
	return plugin.MustParseManifest(manifestData)
}

// Register adds the heartbeat factory to the registry.
func Register(reg *plugin.Registry, logger *slog.Logger, interval time.Duration) error {
	return reg.Register(Descriptor().ModuleID, func() (plugin.Plugin, error) {
		return New(logger, interval), nil
	})
}

// Heartbeat logs a tick at a fixed interval between enable and disable.
type Heartbeat struct {
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	ticks  uint64
}

// New creates a heartbeat plugin instance.
func New(logger *slog.Logger, interval time.Duration) *Heartbeat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{
		logger:   logger,
		interval: interval,
	}
}

// OnLoad validates the configured interval.
func (h *Heartbeat) OnLoad(_ context.Context) error {
	if h.interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", h.interval)
	}
	return nil
}

// OnEnable starts the ticker goroutine.
func (h *Heartbeat) OnEnable(_ context.Context) error {
	// The tick loop outlives the hook's context; it is stopped by OnDisable.
	tickCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				h.ticks++
				h.logger.Info("heartbeat", "tick", h.ticks)
			}
		}
	}()
	return nil
}

// OnDisable stops the ticker goroutine and waits for it to exit.
func (h *Heartbeat) OnDisable(ctx context.Context) error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	h.cancel = nil
	return nil
}

// OnUnload is a no-op; the ticker is already stopped by OnDisable.
func (h *Heartbeat) OnUnload(_ context.Context) error {
	return nil
}
