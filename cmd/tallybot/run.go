// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tallybot/internal/config"
	"github.com/tallybot/tallybot/internal/logging"
	"github.com/tallybot/tallybot/internal/observability"
	"github.com/tallybot/tallybot/internal/plugin"
	"github.com/tallybot/tallybot/internal/plugins/chatrelay"
	"github.com/tallybot/tallybot/internal/plugins/heartbeat"
)

// shutdownTimeout bounds the observability server teardown, not plugin hooks.
const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot process",
		Long: `Start the bot process: load the configured plugins in dependency
order, enable them, and serve until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().StringSlice("plugins", nil, "module IDs of the plugins to activate, in discovery order")

	return cmd
}

// builtinDescriptors returns the descriptors of all built-in plugins, keyed
// by module ID.
func builtinDescriptors() map[string]plugin.Descriptor {
	descs := map[string]plugin.Descriptor{}
	for _, d := range []plugin.Descriptor{heartbeat.Descriptor(), chatrelay.Descriptor()} {
		descs[d.ModuleID] = d
	}
	return descs
}

// selectDescriptors maps the configured plugin list to descriptors,
// preserving order. Unknown module IDs are logged and skipped so one bad
// config entry does not prevent independent plugins from loading.
func selectDescriptors(configured []string, logger *slog.Logger) []plugin.Descriptor {
	available := builtinDescriptors()
	descs := make([]plugin.Descriptor, 0, len(configured))
	for _, id := range configured {
		d, ok := available[id]
		if !ok {
			logger.Error("unknown plugin in config, skipping", "module", id)
			continue
		}
		descs = append(descs, d)
	}
	return descs
}

// buildHost creates the plugin host and registers the built-in factories.
func buildHost(cfg *config.Config, logger *slog.Logger, metrics *plugin.Metrics) (*plugin.Host, error) {
	reg := plugin.NewRegistry()

	opts := []plugin.HostOption{plugin.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, plugin.WithMetrics(metrics))
	}
	host, err := plugin.NewHost(reg, selectDescriptors(cfg.Plugins, logger), opts...)
	if err != nil {
		return nil, err
	}

	if err := heartbeat.Register(reg, logger, cfg.Heartbeat.Interval); err != nil {
		return nil, err
	}
	relayCfg := chatrelay.Config{
		Addr:        cfg.Chat.Addr,
		DialTimeout: cfg.Chat.DialTimeout,
	}
	if err := chatrelay.Register(reg, host, relayCfg, logger); err != nil {
		return nil, err
	}

	return host, nil
}

// runBot starts the bot: plugins up, serve, plugins down.
func runBot(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("tallybot", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting tallybot",
		"plugins", cfg.Plugins,
		"log_format", cfg.LogFormat,
	)

	var host *plugin.Host
	var metrics *plugin.Metrics
	var obsServer *observability.Server

	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			return host != nil && host.Ready()
		})
		metrics = plugin.NewMetrics(obsServer.Registry())
	}

	host, err := buildHost(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to build plugin host: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go func() {
			if serveErr, ok := <-obsErrChan; ok && serveErr != nil {
				logger.Error("observability server failed", "error", serveErr)
				cancel()
			}
		}()
	}

	if err := host.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	if err := host.EnableAll(ctx); err != nil {
		return fmt.Errorf("failed to enable plugins: %w", err)
	}

	snap := host.Snapshot()
	logger.Info("tallybot ready",
		"plugins_total", snap.Total,
		"plugins_enabled", len(snap.Enabled),
		"enabled", snap.Enabled,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	host.Shutdown(context.Background())

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
