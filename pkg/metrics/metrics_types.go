// Package metrics records what a merge run did in a private prometheus registry, written
// out as a node-exporter textfile when the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one run.
type Registry struct {
	// Merge Metrics
	EntriesTotal           *prometheus.CounterVec
	IDsAllocatedTotal      *prometheus.CounterVec
	DesiredDuplicatesTotal *prometheus.CounterVec
	SkippedNodesTotal      *prometheus.CounterVec

	// Panel Metrics
	PanelElementsTotal *prometheus.CounterVec
	SignalsPlaced      prometheus.Gauge
	BlocksSkipped      prometheus.Gauge

	// Run Metrics
	RunDuration      prometheus.Histogram
	PhaseDuration    *prometheus.HistogramVec
	DocumentElements *prometheus.GaugeVec
	RunUnchanged     prometheus.Gauge
	LastRunTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all metrics initialized.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initMergeMetrics()
	r.initPanelMetrics()
	r.initRunMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
