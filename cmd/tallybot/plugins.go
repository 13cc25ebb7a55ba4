// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/tallybot/tallybot/internal/config"
	"github.com/tallybot/tallybot/internal/plugin"
)

// NewPluginsCmd creates the plugins subcommand.
func NewPluginsCmd() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Resolve the configured plugins and print the load order",
		Long: `Resolve the configured plugins' dependencies and print the computed
load order without loading anything. Plugins with missing dependencies
are listed with their unresolved names.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), nil)
			if err != nil {
				return err
			}
			return printPlugins(cmd, cfg, match)
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "only list plugins whose name or module ID matches the glob")

	return cmd
}

func printPlugins(cmd *cobra.Command, cfg *config.Config, match string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	descs := selectDescriptors(cfg.Plugins, slog.Default())

	runtimes, err := plugin.Resolve(descs, plugin.NewRegistry(), logger)
	if err != nil {
		return err
	}
	order, err := plugin.LoadOrder(runtimes)
	if err != nil {
		return fmt.Errorf("failed to compute load order: %w", err)
	}

	position := make(map[string]int, len(order))
	for i, rt := range order {
		position[rt.Descriptor().ModuleID] = i + 1
	}

	var filter glob.Glob
	if match != "" {
		filter, err = glob.Compile(match)
		if err != nil {
			return fmt.Errorf("invalid --match pattern %q: %w", match, err)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tNAME\tMODULE\tVERSION\tSTATUS\tDEPENDS-ON")
	for _, rt := range runtimes {
		d := rt.Descriptor()
		if filter != nil && !filter.Match(d.Name) && !filter.Match(d.ModuleID) {
			continue
		}
		pos := "-"
		if p, ok := position[d.ModuleID]; ok {
			pos = fmt.Sprintf("%d", p)
		}
		status := rt.Status().String()
		if missing := rt.Unresolved(); len(missing) > 0 {
			status += " (" + strings.Join(missing, ", ") + ")"
		}
		deps := strings.Join(d.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", pos, d.Name, d.ModuleID, d.Version, status, deps)
	}
	return w.Flush()
}
