// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tallybot/internal/config"
	"github.com/tallybot/tallybot/internal/plugin"
)

// ProcessStatus holds the observed state of a running bot process.
type ProcessStatus struct {
	Running bool           `json:"running"`
	Ready   bool           `json:"ready"`
	Plugins []PluginStatus `json:"plugins,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// PluginStatus is the reported lifecycle status of one plugin.
type PluginStatus struct {
	Module string `json:"module"`
	Status string `json:"status"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of the running bot process",
		Long: `Query the health endpoints of a running bot process and report its
readiness and per-plugin lifecycle status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Load(resolveConfigFile(), nil)
			if err != nil {
				return err
			}
			if appCfg.MetricsAddr == "" {
				return fmt.Errorf("metrics-addr is disabled, no endpoint to query")
			}
			return runStatus(cmd, cfg, appCfg.MetricsAddr)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig, addr string) error {
	status := queryProcessStatus(addr)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Print(formatStatusTable(status))
	return nil
}

// queryProcessStatus probes the observability endpoints of the bot process
// listening on addr.
func queryProcessStatus(addr string) ProcessStatus {
	var status ProcessStatus
	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	resp, err := client.Get(base + "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	_ = resp.Body.Close()
	status.Running = resp.StatusCode == http.StatusOK

	resp, err = client.Get(base + "/healthz/readiness")
	if err == nil {
		_ = resp.Body.Close()
		status.Ready = resp.StatusCode == http.StatusOK
	}

	resp, err = client.Get(base + "/metrics")
	if err != nil {
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.Plugins = parsePluginStatuses(resp.Body)
	return status
}

// pluginStatusLine matches the per-plugin status gauge in Prometheus text
// exposition format.
var pluginStatusLine = regexp.MustCompile(`^tallybot_plugin_status\{module="([^"]+)"\} (-?\d+)`)

// parsePluginStatuses extracts plugin statuses from a metrics response body.
func parsePluginStatuses(body io.Reader) []PluginStatus {
	var plugins []PluginStatus
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		m := pluginStatusLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		plugins = append(plugins, PluginStatus{
			Module: m[1],
			Status: plugin.Status(value).String(),
		})
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Module < plugins[j].Module })
	return plugins
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status ProcessStatus) string {
	var sb strings.Builder

	if !status.Running {
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		fmt.Fprintf(&sb, "tallybot: stopped (%s)\n", reason)
		return sb.String()
	}

	readiness := "not ready"
	if status.Ready {
		readiness = "ready"
	}
	fmt.Fprintf(&sb, "tallybot: running, %s\n\n", readiness)

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tSTATUS")
	for _, p := range status.Plugins {
		fmt.Fprintf(w, "%s\t%s\n", p.Module, p.Status)
	}
	_ = w.Flush()
	return sb.String()
}
