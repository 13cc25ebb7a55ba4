// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

// Package config loads the application configuration from a YAML file and
// command-line flags, flags taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the full application configuration.
type Config struct {
	LogFormat   string    `koanf:"log-format"`
	MetricsAddr string    `koanf:"metrics-addr"`
	Plugins     []string  `koanf:"plugins"`
	Heartbeat   Heartbeat `koanf:"heartbeat"`
	Chat        Chat      `koanf:"chat"`
}

// Heartbeat configures the built-in heartbeat plugin.
type Heartbeat struct {
	Interval time.Duration `koanf:"interval"`
}

// Chat configures the built-in chat relay plugin.
type Chat struct {
	Addr        string        `koanf:"addr"`
	DialTimeout time.Duration `koanf:"dial-timeout"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		LogFormat:   "json",
		MetricsAddr: "127.0.0.1:9100",
		Heartbeat: Heartbeat{
			Interval: 30 * time.Second,
		},
		Chat: Chat{
			DialTimeout: 10 * time.Second,
		},
	}
}

// Load reads the configuration file at path (if non-empty) and overlays any
// set flags. The plugins list keeps file order; it is the discovery order
// used as the deterministic tie-break when computing the load order.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to read flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration constraints.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat.interval must be positive, got %s", c.Heartbeat.Interval)
	}
	if c.Chat.DialTimeout <= 0 {
		return fmt.Errorf("chat.dial-timeout must be positive, got %s", c.Chat.DialTimeout)
	}
	seen := make(map[string]struct{}, len(c.Plugins))
	for _, p := range c.Plugins {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("plugin %s is listed twice", p)
		}
		seen[p] = struct{}{}
	}
	return nil
}
