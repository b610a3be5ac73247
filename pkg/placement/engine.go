package placement

import (
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
)

const bodySuffix = ".body"

// Placement positions one signal-head icon and its label.
type Placement struct {
	// Head is the signal head user name.
	Head     string
	Rotation Rotation
	// Anchor is the head point of the track the signal protects.
	Anchor layout.Point
	// SignalX and SignalY are the icon's top-left corner.
	SignalX int
	SignalY int
	LabelX  int
	LabelY  int
	Label   string
}

// BlockPlacement holds both signals of a location.
type BlockPlacement struct {
	Block   string
	Forward Placement
	Reverse Placement
}

// Engine places signals on one indexed panel.
type Engine struct {
	ix  *layout.Index
	geo Geometry
}

// NewEngine returns an engine over ix.
func NewEngine(ix *layout.Index, geo Geometry) *Engine {
	return &Engine{ix: ix, geo: geo}
}

// place computes the placement for a head drawn at far, pointing away from near.
func (e *Engine) place(head string, near, far layout.Point) Placement {
	rot := Classify(VectorBetween(near, far))
	signal := far.Add(e.geo.SignalOffset(rot))
	label := signal.Add(e.geo.LabelOffset(rot, len(head)))
	p := Placement{
		Head:     head,
		Rotation: rot,
		Anchor:   far,
		SignalX:  int(signal.X - e.geo.IconHalf),
		SignalY:  int(signal.Y - e.geo.IconHalf),
		LabelX:   int(label.X),
		LabelY:   int(label.Y),
		Label:    head,
	}
	return p
}

func (e *Engine) neighborUnion(ids []string) (layout.Set, error) {
	out := layout.Set{}
	for _, id := range ids {
		n, err := e.ix.Neighbors(id)
		if err != nil {
			return nil, err
		}
		out.Union(n)
	}
	return out, nil
}

func placeError(block, detail string) error {
	return faults.New("place-signals").Kind("block").Key(block).Context(detail).Cause(faults.ErrLookup).Err()
}

// PlaceBlock places the forward and reverse signals of a location.
//
// The forward signal sits at the outer end of the head segment, the one touching the
// body block. The reverse signal sits at the single body endpoint that is neither shared
// between body segments nor the connection to the head. A block whose head or body is
// missing from the panel returns faults.ErrBlockNotInPanel; every other inconsistency
// is fatal.
func (e *Engine) PlaceBlock(block string) (*BlockPlacement, error) {
	heads, ok := e.ix.Block(block)
	if !ok {
		return nil, faults.New("place-signals").Kind("block").Key(block).Cause(faults.ErrBlockNotInPanel).Err()
	}
	body := block + bodySuffix
	bodies, ok := e.ix.Block(body)
	if !ok {
		return nil, faults.New("place-signals").Kind("block").Key(body).Cause(faults.ErrBlockNotInPanel).Err()
	}

	headNeighbors, err := e.neighborUnion(heads)
	if err != nil {
		return nil, err
	}
	bodyNeighbors, err := e.neighborUnion(bodies)
	if err != nil {
		return nil, err
	}
	connect := headNeighbors.Intersect(bodyNeighbors)
	if len(connect) != 1 {
		return nil, faults.New("place-signals").
			Kind("block").
			Key(block).
			Contextf("expected one connection point to %s, found %d %v", body, len(connect), connect.Sorted()).
			Cause(faults.ErrLookup).
			Err()
	}
	connection := connect.Sorted()[0]

	var headSegment, farPoint string
	for _, h := range heads {
		n, err := e.ix.Neighbors(h)
		if err != nil {
			return nil, err
		}
		if !n.Has(connection) {
			continue
		}
		delete(n, connection)
		if len(n) != 1 {
			return nil, placeError(block, "head segment "+h+" does not have exactly two ends")
		}
		headSegment = h
		farPoint = n.Sorted()[0]
		break
	}
	forward, err := e.segmentPlacement(entity.ForwardSignalPrefix+block, headSegment, connection, farPoint)
	if err != nil {
		return nil, err
	}

	// Endpoint -> body segments touching it. Points shared by two body segments are
	// interior; the connection point leads to the head.
	touching := make(map[string][]string)
	var order []string
	for _, b := range bodies {
		n, err := e.ix.Neighbors(b)
		if err != nil {
			return nil, err
		}
		for _, p := range n.Sorted() {
			if _, ok := touching[p]; !ok {
				order = append(order, p)
			}
			touching[p] = append(touching[p], b)
		}
	}
	if _, ok := touching[connection]; !ok {
		return nil, placeError(block, "connection point "+connection+" is not a body endpoint")
	}
	var ends []string
	for _, p := range order {
		if p == connection || len(touching[p]) > 1 {
			continue
		}
		ends = append(ends, p)
	}
	if len(ends) != 1 {
		return nil, faults.New("place-signals").
			Kind("block").
			Key(block).
			Contextf("expected one free body endpoint, found %d %v", len(ends), ends).
			Cause(faults.ErrLookup).
			Err()
	}
	revFar := ends[0]
	revSegment := touching[revFar][0]
	n, err := e.ix.Neighbors(revSegment)
	if err != nil {
		return nil, err
	}
	delete(n, revFar)
	if len(n) != 1 {
		return nil, placeError(block, "body segment "+revSegment+" does not have exactly two ends")
	}
	reverse, err := e.segmentPlacement(entity.ReverseSignalPrefix+block, revSegment, n.Sorted()[0], revFar)
	if err != nil {
		return nil, err
	}

	return &BlockPlacement{Block: block, Forward: forward, Reverse: reverse}, nil
}

func (e *Engine) segmentPlacement(head, segment, near, far string) (Placement, error) {
	el, ok := e.ix.Element(segment)
	if !ok || el.Tag != layout.TagTrackSegment {
		tag := "missing"
		if ok {
			tag = el.Tag
		}
		return Placement{}, faults.New("place-signals").
			Node(tag).
			Key(segment).
			Contextf("signal %s needs a track segment", head).
			Cause(faults.ErrLookup).
			Err()
	}
	farXY, err := e.ix.MarginCoordinate(far, segment)
	if err != nil {
		return Placement{}, err
	}
	nearXY, err := e.ix.MarginCoordinate(near, segment)
	if err != nil {
		return Placement{}, err
	}
	return e.place(head, nearXY, farXY), nil
}

// PlaceAll places every block in order. Blocks missing from the panel are returned in
// skipped; any other fault aborts.
func (e *Engine) PlaceAll(blocks []string) (placed []*BlockPlacement, skipped []string, err error) {
	for _, b := range blocks {
		p, err := e.PlaceBlock(b)
		if err != nil {
			if faults.IsBlockNotInPanel(err) {
				skipped = append(skipped, b)
				continue
			}
			return nil, nil, err
		}
		placed = append(placed, p)
	}
	return placed, skipped, nil
}
