// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/tallybot/tallybot/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the --config value, or the XDG default config
// file when the flag is unset and the file exists.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigFile()
}

// NewRootCmd creates the root command for the TallyBot CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tallybot",
		Short: "TallyBot - an in-game economy bot",
		Long: `TallyBot is a chat-platform bot that manages an in-game economy.
All features ship as plugins; the core is the plugin lifecycle engine
that resolves their dependencies and drives startup and shutdown.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewPluginsCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewValidateCmd())

	return cmd
}
