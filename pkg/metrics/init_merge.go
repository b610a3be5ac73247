package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jmri_merge"

func (r *Registry) initMergeMetrics() {
	r.EntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Collection entries handled by the reconciler, by outcome",
		},
		[]string{"kind", "action"},
	)

	r.IDsAllocatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ids_allocated_total",
			Help:      "System names drawn from the allocator",
		},
		[]string{"kind"},
	)

	r.DesiredDuplicatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "desired_duplicates_total",
			Help:      "Keys listed more than once in the derived entity list",
		},
		[]string{"kind"},
	)

	r.SkippedNodesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_nodes_total",
			Help:      "Existing collection entries without a readable key",
		},
		[]string{"kind"},
	)
}

func (r *Registry) initPanelMetrics() {
	r.PanelElementsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panel_elements_total",
			Help:      "Generated panel elements written or removed",
		},
		[]string{"action"},
	)

	r.SignalsPlaced = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signals_placed",
			Help:      "Blocks whose signal icons were placed",
		},
	)

	r.BlocksSkipped = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks_skipped",
			Help:      "Blocks without track on the panel",
		},
	)
}

func (r *Registry) initRunMetrics() {
	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a merge run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.PhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each run phase",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"phase"},
	)

	r.DocumentElements = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_elements",
			Help:      "Element count of the panel document",
		},
		[]string{"stage"},
	)

	r.RunUnchanged = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_unchanged",
			Help:      "1 when the output document equals the input",
		},
	)

	r.LastRunTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished",
		},
	)
}
