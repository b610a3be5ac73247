package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
)

// Entry outcomes, the action label of EntriesTotal.
const (
	ActionInserted  = "inserted"
	ActionUpdated   = "updated"
	ActionUnchanged = "unchanged"
	ActionUndesired = "undesired"
	ActionPurged    = "purged"
	ActionDuplicate = "duplicate"
)

// RecordMerge adds the outcome of one collection merge.
func (r *Registry) RecordMerge(res *reconcile.Result) {
	if res == nil {
		return
	}
	kind := res.Kind.String()
	add := func(action string, n int) {
		r.EntriesTotal.WithLabelValues(kind, action).Add(float64(n))
	}
	add(ActionInserted, len(res.Inserted))
	add(ActionUpdated, len(res.Updated))
	add(ActionUnchanged, len(res.Unchanged))
	add(ActionUndesired, len(res.Undesired)-len(res.Purged))
	add(ActionPurged, len(res.Purged))
	add(ActionDuplicate, len(res.Duplicates))

	r.IDsAllocatedTotal.WithLabelValues(kind).Add(float64(len(res.Allocated)))
	r.DesiredDuplicatesTotal.WithLabelValues(kind).Add(float64(len(res.DesiredDuplicates)))
	r.SkippedNodesTotal.WithLabelValues(kind).Add(float64(res.Skipped))
}

// RecordPanel records the panel overlay rewrite.
func (r *Registry) RecordPanel(added, removed, placed, skipped int) {
	r.PanelElementsTotal.WithLabelValues("added").Add(float64(added))
	r.PanelElementsTotal.WithLabelValues("removed").Add(float64(removed))
	r.SignalsPlaced.Set(float64(placed))
	r.BlocksSkipped.Set(float64(skipped))
}

// ObservePhase records how long one phase of the run took.
func (r *Registry) ObservePhase(phase string, d time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// SetDocumentElements records the element count of the document at a stage
// ("input" or "output").
func (r *Registry) SetDocumentElements(stage string, n int) {
	r.DocumentElements.WithLabelValues(stage).Set(float64(n))
}

// ObserveRun records the end of a run.
func (r *Registry) ObserveRun(d time.Duration, unchanged bool, finished time.Time) {
	r.RunDuration.Observe(d.Seconds())
	if unchanged {
		r.RunUnchanged.Set(1)
	} else {
		r.RunUnchanged.Set(0)
	}
	r.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
