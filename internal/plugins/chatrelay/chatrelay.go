// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package chatrelay is a built-in plugin that maintains the connection to
// the chat platform gateway. Enabling it logs in to the remote endpoint,
// retrying with backoff; disabling it disconnects.
package chatrelay

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tallybot/tallybot/internal/plugin"
)

//go:embed plugin.yaml
var manifestData []byte

// ServiceConn is the key under which the relay registers its connection with
// the host.
const ServiceConn = "conn"

// dialAttempts bounds the login retries before the plugin reports a crash.
const dialAttempts = 5

// Descriptor returns the plugin's parsed manifest.
func Descriptor() plugin.Descriptor {
	return plugin.MustParseManifest(manifestData)
}

// Config holds the relay's connection settings.
type Config struct {
	// Addr is the chat gateway endpoint. Empty disables the relay: the
	// plugin still participates in the lifecycle but never dials out.
	Addr        string
	DialTimeout time.Duration
}

// Register adds the chat relay factory to the registry. The host reference
// is used to expose the live connection as a service for dependent plugins.
func Register(reg *plugin.Registry, host *plugin.Host, cfg Config, logger *slog.Logger) error {
	return reg.Register(Descriptor().ModuleID, func() (plugin.Plugin, error) {
		return New(host, cfg, logger), nil
	})
}

// Relay connects to the chat gateway while enabled.
type Relay struct {
	host   *plugin.Host
	cfg    Config
	logger *slog.Logger
	conn   net.Conn
}

// New creates a chat relay plugin instance.
func New(host *plugin.Host, cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		host:   host,
		cfg:    cfg,
		logger: logger,
	}
}

// OnLoad validates the connection settings.
func (r *Relay) OnLoad(_ context.Context) error {
	if r.cfg.Addr != "" && r.cfg.DialTimeout <= 0 {
		return fmt.Errorf("chat dial-timeout must be positive, got %s", r.cfg.DialTimeout)
	}
	return nil
}

// OnEnable logs in to the chat gateway, retrying with fibonacci backoff.
func (r *Relay) OnEnable(ctx context.Context) error {
	if r.cfg.Addr == "" {
		r.logger.Warn("no chat endpoint configured, relay stays offline")
		return nil
	}

	backoff := retry.WithMaxRetries(dialAttempts, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialer := net.Dialer{Timeout: r.cfg.DialTimeout}
		conn, dialErr := dialer.DialContext(ctx, "tcp", r.cfg.Addr)
		if dialErr != nil {
			r.logger.Warn("chat gateway dial failed, retrying",
				"addr", r.cfg.Addr, "error", dialErr)
			return retry.RetryableError(dialErr)
		}
		r.conn = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to chat gateway %s: %w", r.cfg.Addr, err)
	}

	r.logger.Info("connected to chat gateway", "addr", r.cfg.Addr)
	if r.host != nil {
		if err := r.host.RegisterService(Descriptor().ModuleID, ServiceConn, r.conn); err != nil {
			r.logger.Warn("failed to register chat connection service", "error", err)
		}
	}
	return nil
}

// OnDisable disconnects from the chat gateway. The host detaches the
// registered connection service before this hook runs.
func (r *Relay) OnDisable(_ context.Context) error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close chat connection: %w", err)
	}
	r.logger.Info("disconnected from chat gateway", "addr", r.cfg.Addr)
	return nil
}

// OnUnload is a no-op; the connection is already closed by OnDisable.
func (r *Relay) OnUnload(_ context.Context) error {
	return nil
}
