package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.EntriesTotal == nil {
		t.Error("EntriesTotal not initialized")
	}
	if r.RunDuration == nil {
		t.Error("RunDuration not initialized")
	}
	if r.DocumentElements == nil {
		t.Error("DocumentElements not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	r1.SignalsPlaced.Set(4)
	if got := gaugeValue(t, r2.SignalsPlaced); got != 0 {
		t.Errorf("second registry SignalsPlaced = %v, want 0", got)
	}
}

func TestRecordMerge(t *testing.T) {
	r := NewRegistry()

	res := &reconcile.Result{
		Kind:              entity.KindSignalHead,
		Inserted:          []string{"Sig.A1", "Sig.RA1"},
		Updated:           []string{"Sig.B2"},
		Unchanged:         []string{"Sig.C3"},
		Undesired:         []string{"Sig.old", "Sig.X"},
		Purged:            []string{"Sig.old", "Sig.X"},
		Duplicates:        []string{"Sig.B2"},
		DesiredDuplicates: []string{"Sig.A1"},
		Allocated:         []string{"LH7", "LH8"},
		Skipped:           1,
	}
	r.RecordMerge(res)
	r.RecordMerge(res)
	r.RecordMerge(nil)

	kind := entity.KindSignalHead.String()
	tests := []struct {
		action string
		want   float64
	}{
		{ActionInserted, 4},
		{ActionUpdated, 2},
		{ActionUnchanged, 2},
		{ActionUndesired, 0},
		{ActionPurged, 4},
		{ActionDuplicate, 2},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := counterValue(t, r.EntriesTotal, kind, tt.action); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.action, got, tt.want)
			}
		})
	}

	if got := counterValue(t, r.IDsAllocatedTotal, kind); got != 4 {
		t.Errorf("IDsAllocatedTotal = %v, want 4", got)
	}
	if got := counterValue(t, r.DesiredDuplicatesTotal, kind); got != 2 {
		t.Errorf("DesiredDuplicatesTotal = %v, want 2", got)
	}
	if got := counterValue(t, r.SkippedNodesTotal, kind); got != 2 {
		t.Errorf("SkippedNodesTotal = %v, want 2", got)
	}
}

func TestRecordMerge_UndesiredWithoutPurge(t *testing.T) {
	r := NewRegistry()
	r.RecordMerge(&reconcile.Result{
		Kind:      entity.KindSystemBlock,
		Undesired: []string{"Z1", "Z2", "Z3"},
	})

	kind := entity.KindSystemBlock.String()
	if got := counterValue(t, r.EntriesTotal, kind, ActionUndesired); got != 3 {
		t.Errorf("undesired = %v, want 3", got)
	}
	if got := counterValue(t, r.EntriesTotal, kind, ActionPurged); got != 0 {
		t.Errorf("purged = %v, want 0", got)
	}
}

func TestRecordPanel(t *testing.T) {
	r := NewRegistry()
	r.RecordPanel(40, 38, 6, 2)

	if got := counterValue(t, r.PanelElementsTotal, "added"); got != 40 {
		t.Errorf("added = %v, want 40", got)
	}
	if got := counterValue(t, r.PanelElementsTotal, "removed"); got != 38 {
		t.Errorf("removed = %v, want 38", got)
	}
	if got := gaugeValue(t, r.SignalsPlaced); got != 6 {
		t.Errorf("SignalsPlaced = %v, want 6", got)
	}
	if got := gaugeValue(t, r.BlocksSkipped); got != 2 {
		t.Errorf("BlocksSkipped = %v, want 2", got)
	}
}

func TestObserveRun(t *testing.T) {
	r := NewRegistry()
	finished := time.Unix(1700000000, 0)

	r.ObserveRun(250*time.Millisecond, true, finished)
	r.ObservePhase("merge", 10*time.Millisecond)
	r.SetDocumentElements("input", 1200)
	r.SetDocumentElements("output", 1250)

	if got := gaugeValue(t, r.RunUnchanged); got != 1 {
		t.Errorf("RunUnchanged = %v, want 1", got)
	}
	if got := gaugeValue(t, r.LastRunTimestamp); got != 1700000000 {
		t.Errorf("LastRunTimestamp = %v, want 1700000000", got)
	}
	out, err := r.DocumentElements.GetMetricWithLabelValues("output")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := gaugeValue(t, out); got != 1250 {
		t.Errorf("output elements = %v, want 1250", got)
	}

	var metric dto.Metric
	if err := r.RunDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("RunDuration samples = %d, want 1", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() != 0.25 {
		t.Errorf("RunDuration sum = %v, want 0.25", metric.Histogram.GetSampleSum())
	}

	r.ObserveRun(time.Second, false, finished)
	if got := gaugeValue(t, r.RunUnchanged); got != 0 {
		t.Errorf("RunUnchanged = %v, want 0", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordMerge(&reconcile.Result{Kind: entity.KindSensor, Inserted: []string{"perm.T1.loc.A1"}})
	r.ObserveRun(time.Millisecond, false, time.Unix(1, 0))

	path := filepath.Join(t.TempDir(), "jmri-merge.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`jmri_merge_entries_total{action="inserted",kind="sensor"} 1`,
		"# TYPE jmri_merge_run_duration_seconds histogram",
		"jmri_merge_last_run_timestamp_seconds 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestWriteTextfile_BadPath(t *testing.T) {
	r := NewRegistry()
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")); err == nil {
		t.Error("WriteTextfile() to a missing directory should fail")
	}
}
