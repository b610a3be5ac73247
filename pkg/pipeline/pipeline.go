// Package pipeline runs one merge: it derives the desired entities from the variable file,
// reconciles every collection of the panel document, rewrites the generated panel overlay
// and saves the result.
package pipeline

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/dd0wney/jmri-panelmerge/pkg/config"
	"github.com/dd0wney/jmri-panelmerge/pkg/derive"
	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/journal"
	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
	"github.com/dd0wney/jmri-panelmerge/pkg/metrics"
	"github.com/dd0wney/jmri-panelmerge/pkg/panel"
	"github.com/dd0wney/jmri-panelmerge/pkg/placement"
	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
	"github.com/dd0wney/jmri-panelmerge/pkg/report"
)

// VariableRoot is the synthetic root the variable file is wrapped in.
const VariableRoot = "data"

// Options describe one run.
type Options struct {
	Input  string
	Output string
	// Notable leaves the location table alone. Signal icons are still re-placed.
	Notable bool
	Config  *config.Config
	Log     logging.Logger
	// RunID tags log lines and journal records. A random one is used when empty.
	RunID string
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// Result is what a run did.
type Result struct {
	RunID        string
	Derived      *derive.Derived
	Merges       []*reconcile.Result
	Placed       []*placement.BlockPlacement
	Skipped      []string
	PanelAdded   int
	PanelRemoved int
	InputDigest  document.Digest
	OutputDigest document.Digest
	Unchanged    bool
	Metrics      *metrics.Registry
	Summary      *report.Summary
}

type run struct {
	opts    Options
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Registry
	now     func() time.Time
	res     *Result
}

// Run executes the whole merge described by opts.
func Run(opts Options) (*Result, error) {
	r := &run{opts: opts, cfg: opts.Config, log: opts.Log, now: opts.Now}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.log == nil {
		r.log = logging.NewNopLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	r.log = r.log.With(logging.RunID(runID))
	r.metrics = metrics.NewRegistry()
	r.res = &Result{RunID: runID, Metrics: r.metrics}

	started := r.now()
	if err := r.execute(); err != nil {
		return nil, err
	}
	elapsed := r.now().Sub(started)
	r.metrics.ObserveRun(elapsed, r.res.Unchanged, r.now())

	r.res.Summary = &report.Summary{
		RunID:        runID,
		Input:        opts.Input,
		Output:       opts.Output,
		InputDigest:  r.res.InputDigest.Short(),
		OutputDigest: r.res.OutputDigest.Short(),
		Unchanged:    r.res.Unchanged,
		Duration:     elapsed,
		Results:      r.res.Merges,
		Placed:       len(r.res.Placed),
		Skipped:      r.res.Skipped,
		PanelAdded:   r.res.PanelAdded,
		PanelRemoved: r.res.PanelRemoved,
		Notable:      opts.Notable,
	}
	if err := r.writeArtifacts(); err != nil {
		return nil, err
	}
	return r.res, nil
}

func (r *run) phase(name string, fn func() error) error {
	timer := logging.StartTimer(r.log, "phase complete", logging.String("phase", name))
	if err := fn(); err != nil {
		timer.EndError(err)
		return err
	}
	r.metrics.ObservePhase(name, timer.End())
	return nil
}

func (r *run) execute() error {
	var (
		doc     *etree.Document
		derived *derive.Derived
		ix      *layout.Index
	)

	err := r.phase("load", func() error {
		var err error
		doc, err = document.Load(r.opts.Input)
		if err != nil {
			return err
		}
		if r.res.InputDigest, err = document.DigestOf(doc); err != nil {
			return err
		}
		r.metrics.SetDocumentElements("input", document.CountElements(doc.Root()))
		r.log.Info("loaded document",
			logging.Path(r.opts.Input),
			logging.String("digest", r.res.InputDigest.Short()))
		return nil
	})
	if err != nil {
		return err
	}
	root := doc.Root()

	err = r.phase("derive", func() error {
		vars, err := document.LoadFragment(r.cfg.VariablesFile, VariableRoot)
		if err != nil {
			return err
		}
		sensors, err := derive.ParseSensors(vars, r.log)
		if err != nil {
			return err
		}
		derived, err = derive.New(r.log).Derive(sensors)
		if err != nil {
			return err
		}
		r.res.Derived = derived
		return nil
	})
	if err != nil {
		return err
	}

	err = r.phase("index", func() error {
		var err error
		ix, err = layout.NewIndex(root, r.cfg.Panel)
		if err != nil {
			return err
		}
		for _, d := range ix.CheckConnectivity() {
			r.log.Warn("dangling track connection",
				logging.Ident(d.From), logging.String("attr", d.Attr), logging.String("target", d.Target))
		}
		coords, missing, err := ix.LocationCoordinates(derived.ConditionalLocations())
		if err != nil {
			return err
		}
		for _, m := range missing {
			r.log.Warn("no coordinate for location",
				logging.String("location", m.Location), logging.Error(m.Reason))
		}
		derived.PlaceConditionals(r.cfg.Panel, coords)
		r.log.Info("indexed panel",
			logging.Panel(ix.Name()),
			logging.Int("idents", ix.Len()),
			logging.Int("located", len(coords)))
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.phase("merge", func() error { return r.merge(root, derived) }); err != nil {
		return err
	}
	if err := r.phase("panel", func() error { return r.renderPanel(ix, derived) }); err != nil {
		return err
	}

	for _, d := range CheckReferences(root, derived) {
		r.log.Warn("dangling reference",
			logging.Kind(d.From.String()),
			logging.Key(d.FromKey),
			logging.String("target_kind", d.Target.String()),
			logging.String("target", d.Referred))
	}

	return r.phase("save", func() error {
		var err error
		if r.res.OutputDigest, err = document.DigestOf(doc); err != nil {
			return err
		}
		r.res.Unchanged = r.res.OutputDigest == r.res.InputDigest
		r.metrics.SetDocumentElements("output", document.CountElements(root))
		if err := document.Save(doc, r.opts.Output, r.opts.Input); err != nil {
			return err
		}
		r.log.Info("saved document",
			logging.Path(r.opts.Output),
			logging.String("digest", r.res.OutputDigest.Short()),
			logging.Bool("unchanged", r.res.Unchanged))
		return nil
	})
}

func (r *run) merge(root *etree.Element, derived *derive.Derived) error {
	for _, k := range entity.Kinds() {
		desc := k.Descriptor()
		desired := derived.Entities(k)
		if len(desired) == 0 {
			r.log.Debug("nothing derived", logging.Kind(desc.Name))
			continue
		}
		coll, created := document.EnsureChild(root, desc.Collection)
		if created {
			r.log.Warn("collection missing, created", logging.Collection(desc.Collection))
		}
		res, err := reconcile.MergeEntries(coll, desired, reconcile.Options{
			Purge: desc.Purge,
			Floor: r.cfg.IDs.Floor,
			Log:   r.log,
		})
		if err != nil {
			return fmt.Errorf("merging %s: %w", desc.Collection, err)
		}
		r.res.Merges = append(r.res.Merges, res)
		r.metrics.RecordMerge(res)
	}

	if len(derived.Conditionals) == 0 {
		return nil
	}
	names := make([]string, 0, len(derived.Conditionals))
	for _, c := range derived.Conditionals {
		names = append(names, c.SystemName())
	}
	if err := RebuildLogixOrder(root, r.cfg.LogixSystemName, names); err != nil {
		return err
	}
	r.log.Info("rebuilt logix order", logging.SystemName(r.cfg.LogixSystemName), logging.Count(len(names)))
	return nil
}

func (r *run) renderPanel(ix *layout.Index, derived *derive.Derived) error {
	ed := panel.NewEditor(ix.Panel(), r.cfg.TableLayout(), r.log)
	if r.opts.Notable {
		ed.RemoveSignalOverlay()
	} else {
		ed.RemoveGenerated(panel.OverlayTags...)
		ed.RenderTable(derived.Locations, derived.Trains)
	}

	engine := placement.NewEngine(ix, r.cfg.Geometry())
	placed, skipped, err := engine.PlaceAll(derived.Locations)
	if err != nil {
		return err
	}
	for _, b := range skipped {
		r.log.Warn("block not in panel, signals skipped", logging.Key(b), logging.Panel(ix.Name()))
	}
	ed.RenderSignals(placed)

	r.res.Placed = placed
	r.res.Skipped = skipped
	r.res.PanelAdded = ed.Added()
	r.res.PanelRemoved = ed.Removed()
	r.metrics.RecordPanel(ed.Added(), ed.Removed(), len(placed), len(skipped))
	return nil
}

func (r *run) writeArtifacts() error {
	if path := r.cfg.JournalFile; path != "" {
		if err := r.writeJournal(path); err != nil {
			return err
		}
	}
	if path := r.cfg.MetricsFile; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			return err
		}
		r.log.Debug("wrote metrics", logging.Path(path))
	}
	return nil
}

func (r *run) writeJournal(path string) error {
	w, err := journal.Open(path)
	if err != nil {
		return err
	}
	now := r.now()
	records := []journal.Record{{
		RunID:     r.res.RunID,
		Op:        journal.OpRun,
		Detail:    r.opts.Input + " -> " + r.opts.Output,
		Timestamp: now,
	}}
	for _, m := range r.res.Merges {
		records = append(records, journal.FromResult(r.res.RunID, m, now)...)
	}
	if _, err := w.Append(records...); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	r.log.Debug("wrote journal", logging.Path(path), logging.Count(len(records)))
	return nil
}
