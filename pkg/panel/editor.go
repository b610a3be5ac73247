package panel

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
	"github.com/dd0wney/jmri-panelmerge/pkg/placement"
)

// TableLayout positions the location and train rows.
type TableLayout struct {
	BlockOriginX  int
	TrainOriginX  int
	OriginY       int
	RowStep       int
	ColStep       int
	SensorYOffset int
	BlockLabelDX  int
	TrainLabelDX  int
	LocoDX        int
}

// DefaultTableLayout returns the stock table positions.
func DefaultTableLayout() TableLayout {
	return TableLayout{
		BlockOriginX:  250,
		TrainOriginX:  700,
		OriginY:       190,
		RowStep:       40,
		ColStep:       40,
		SensorYOffset: 3,
		BlockLabelDX:  -80,
		TrainLabelDX:  -120,
		LocoDX:        80,
	}
}

// Editor rewrites the generated overlay of one panel element.
type Editor struct {
	panel   *etree.Element
	table   TableLayout
	log     logging.Logger
	added   int
	removed int
}

// NewEditor returns an editor over the LayoutEditor element.
func NewEditor(panel *etree.Element, table TableLayout, log logging.Logger) *Editor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Editor{panel: panel, table: table, log: log.With(logging.Component("panel"))}
}

// Added returns the number of elements written so far.
func (ed *Editor) Added() int { return ed.added }

// Removed returns the number of elements removed so far.
func (ed *Editor) Removed() int { return ed.removed }

func (ed *Editor) add(e *etree.Element) {
	document.Append(ed.panel, e)
	ed.added++
}

// RemoveGenerated drops every level-9 child with one of the given tags.
func (ed *Editor) RemoveGenerated(tags ...string) int {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var doomed []*etree.Element
	for _, c := range ed.panel.ChildElements() {
		if want[c.Tag] && c.SelectAttrValue("level", "") == GeneratedLevel {
			doomed = append(doomed, c)
		}
	}
	for _, c := range doomed {
		document.Remove(ed.panel, c)
	}
	ed.removed += len(doomed)
	ed.log.Debug("removed generated elements", logging.Count(len(doomed)))
	return len(doomed)
}

// RemoveSignalOverlay drops the level-9 signal-head icons and their labels, leaving the
// location table in place.
func (ed *Editor) RemoveSignalOverlay() int {
	var doomed []*etree.Element
	for _, c := range ed.panel.ChildElements() {
		if c.SelectAttrValue("level", "") != GeneratedLevel {
			continue
		}
		switch {
		case c.Tag == TagSignalHeadIcon:
			doomed = append(doomed, c)
		case c.Tag == TagLabel && strings.HasPrefix(c.SelectAttrValue("text", ""), entity.ForwardSignalPrefix):
			doomed = append(doomed, c)
		}
	}
	for _, c := range doomed {
		document.Remove(ed.panel, c)
	}
	ed.removed += len(doomed)
	return len(doomed)
}

// RenderTable writes one row per location and one row per train.
func (ed *Editor) RenderTable(locations, trains []string) {
	t := ed.table
	y := t.OriginY
	for _, loc := range locations {
		x := t.BlockOriginX
		ed.add(TextLabel(x+t.BlockLabelDX, y, loc))
		for _, suffix := range []string{".request_green", ".body_det.simulated_occ", ".body.route_set_ab", ".signal.route_set_ab"} {
			ed.add(SensorIcon(x, y+t.SensorYOffset, "logic."+loc+suffix))
			x += t.ColStep
		}
		ed.add(MemoryIcon(x, y, "loc."+loc))
		y += t.RowStep
	}

	y = t.OriginY
	for _, train := range trains {
		x := t.TrainOriginX
		ed.add(TextLabel(x+t.TrainLabelDX, y, train))
		for _, suffix := range []string{".is_reversed", ".do_not_move"} {
			ed.add(SensorIcon(x, y+t.SensorYOffset, "perm."+train+suffix))
			x += t.ColStep
		}
		ed.add(MemoryIcon(x, y, "train."+train))
		x += t.LocoDX
		ed.add(LocoIcon(x, y, train))
		y += t.RowStep
	}
	ed.log.Info("rendered location table",
		logging.Int("locations", len(locations)),
		logging.Int("trains", len(trains)))
}

// RenderSignals writes the icon and label of both signals of every placed block.
func (ed *Editor) RenderSignals(placed []*placement.BlockPlacement) {
	for _, bp := range placed {
		for _, p := range []placement.Placement{bp.Forward, bp.Reverse} {
			ed.add(SignalHeadIcon(p.SignalX, p.SignalY, p.Head, int(p.Rotation)))
			ed.add(TextLabel(p.LabelX, p.LabelY, p.Label))
		}
	}
	ed.log.Info("rendered signal icons", logging.Count(2*len(placed)))
}
