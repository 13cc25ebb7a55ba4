// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the plugin engine.
type Metrics struct {
	StatusValue  *prometheus.GaugeVec
	HookFailures *prometheus.CounterVec
	Reloads      *prometheus.CounterVec
}

// NewMetrics creates and registers the plugin engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatusValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tallybot_plugin_status",
				Help: "Lifecycle status per plugin (-1=missing-dependencies, 0=crashed, 1=unloaded, 2=loaded, 3=enabled)",
			},
			[]string{"module"},
		),
		HookFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tallybot_plugin_hook_failures_total",
				Help: "Total number of plugin lifecycle hook failures by module and operation",
			},
			[]string{"module", "operation"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tallybot_plugin_reloads_total",
				Help: "Total number of plugin reloads by module and outcome",
			},
			[]string{"module", "outcome"},
		),
	}

	reg.MustRegister(m.StatusValue)
	reg.MustRegister(m.HookFailures)
	reg.MustRegister(m.Reloads)

	return m
}

// observeStatus records the current status of a runtime.
func (m *Metrics) observeStatus(rt *Runtime) {
	if m == nil {
		return
	}
	m.StatusValue.WithLabelValues(rt.desc.ModuleID).Set(float64(rt.Status()))
}

// recordFailure counts a failed lifecycle operation.
func (m *Metrics) recordFailure(moduleID, operation string) {
	if m == nil {
		return
	}
	m.HookFailures.WithLabelValues(moduleID, operation).Inc()
}

// recordReload counts a reload attempt with its outcome.
func (m *Metrics) recordReload(moduleID, outcome string) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(moduleID, outcome).Inc()
}
