// Package layout indexes the track plan of one LayoutEditor panel and answers the
// geometric questions the placement engine asks of it.
package layout

import (
	"regexp"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
)

// Track-plan element tags.
const (
	TagPanel        = "LayoutEditor"
	TagPoint        = "positionablepoint"
	TagTurnout      = "layoutturnout"
	TagTrackSegment = "tracksegment"
)

var connectAttrPattern = regexp.MustCompile(`^connect.name`)

// Index holds the ident and block maps of one panel.
type Index struct {
	name       string
	panel      *etree.Element
	idents     map[string]*etree.Element
	identOrder []string
	blocks     map[string][]string
	blockOrder []string
}

// FindPanel returns the <LayoutEditor name="name"> child of root.
func FindPanel(root *etree.Element, name string) (*etree.Element, error) {
	panel := document.FindByAttr(root, TagPanel, "name", name)
	if panel == nil {
		return nil, faults.New("find-panel").Kind(TagPanel).Key(name).Context("not found in file").Cause(faults.ErrLookup).Err()
	}
	return panel, nil
}

// NewIndex builds the ident and block maps for the named panel.
func NewIndex(root *etree.Element, name string) (*Index, error) {
	panel, err := FindPanel(root, name)
	if err != nil {
		return nil, err
	}
	ix := &Index{
		name:   name,
		panel:  panel,
		idents: make(map[string]*etree.Element),
		blocks: make(map[string][]string),
	}
	for _, e := range panel.ChildElements() {
		id, ok := document.Attr(e, "ident")
		if !ok {
			continue
		}
		if _, seen := ix.idents[id]; !seen {
			ix.identOrder = append(ix.identOrder, id)
		}
		ix.idents[id] = e

		block, ok := document.Attr(e, "blockname")
		if !ok {
			continue
		}
		if _, seen := ix.blocks[block]; !seen {
			ix.blockOrder = append(ix.blockOrder, block)
		}
		ix.blocks[block] = append(ix.blocks[block], id)
	}
	return ix, nil
}

// Name returns the panel name.
func (ix *Index) Name() string { return ix.name }

// Panel returns the panel element.
func (ix *Index) Panel() *etree.Element { return ix.panel }

// Len returns the number of indexed elements.
func (ix *Index) Len() int { return len(ix.idents) }

// Element returns the element with the given ident.
func (ix *Index) Element(id string) (*etree.Element, bool) {
	e, ok := ix.idents[id]
	return e, ok
}

// Block returns the idents belonging to block, in document order.
func (ix *Index) Block(name string) ([]string, bool) {
	ids, ok := ix.blocks[name]
	return ids, ok
}

// Blocks returns every block name in first-seen order.
func (ix *Index) Blocks() []string {
	out := make([]string, len(ix.blockOrder))
	copy(out, ix.blockOrder)
	return out
}

func (ix *Index) lookup(op, id string) (*etree.Element, error) {
	e, ok := ix.idents[id]
	if !ok {
		return nil, faults.New(op).Kind("ident").Key(id).Contextf("not found in panel %q", ix.name).Cause(faults.ErrLookup).Err()
	}
	return e, nil
}

// Neighbors returns the idents named by the connect?name attributes of id.
func (ix *Index) Neighbors(id string) (Set, error) {
	e, err := ix.lookup("neighbors", id)
	if err != nil {
		return nil, err
	}
	out := Set{}
	for _, a := range e.Attr {
		if a.Space == "" && a.Value != "" && connectAttrPattern.MatchString(a.Key) {
			out[a.Value] = struct{}{}
		}
	}
	return out, nil
}

// MarginCoordinate returns the coordinate of dest as seen from its neighbor source.
//
// A positionable point is its own coordinate. For a turnout the coordinate depends on
// which leg source attaches to: legs B and C report their stored points, while legs A
// and D report the reflection of C's opposite leg through the turnout center
// (A mirrors B, D mirrors C).
func (ix *Index) MarginCoordinate(dest, source string) (Point, error) {
	node, err := ix.lookup("margin-coordinate", dest)
	if err != nil {
		return Point{}, err
	}
	switch node.Tag {
	case TagPoint:
		return pointAttr(node, "x", "y")
	case TagTurnout:
		var leg string
		switch source {
		case node.SelectAttrValue("connectaname", "\x00"):
			leg = "a"
		case node.SelectAttrValue("connectbname", "\x00"):
			leg = "b"
		case node.SelectAttrValue("connectcname", "\x00"):
			leg = "c"
		case node.SelectAttrValue("connectdname", "\x00"):
			leg = "d"
		default:
			return Point{}, faults.New("margin-coordinate").
				Kind(TagTurnout).
				Key(dest).
				Contextf("does not connect to %q", source).
				Cause(faults.ErrLookup).
				Err()
		}
		switch leg {
		case "b":
			return pointAttr(node, "xb", "yb")
		case "c":
			return pointAttr(node, "xc", "yc")
		}
		center, err := pointAttr(node, "xcen", "ycen")
		if err != nil {
			return Point{}, err
		}
		far := "b"
		if leg == "d" {
			far = "c"
		}
		p, err := pointAttr(node, "x"+far, "y"+far)
		if err != nil {
			return Point{}, err
		}
		return p.Reflect(center), nil
	default:
		return Point{}, faults.New("margin-coordinate").
			Kind(node.Tag).
			Key(dest).
			Context("no position rule for this element type").
			Cause(faults.ErrLookup).
			Err()
	}
}

// CenterOf returns the midpoint of the segment with the given ident.
func (ix *Index) CenterOf(segment string) (Point, error) {
	e, err := ix.lookup("center-of", segment)
	if err != nil {
		return Point{}, err
	}
	return ix.CenterOfElement(e)
}

// CenterOfElement returns the midpoint of a tracksegment element, measured between the
// margin coordinates of its two endpoints.
func (ix *Index) CenterOfElement(segment *etree.Element) (Point, error) {
	id := segment.SelectAttrValue("ident", "")
	if segment.Tag != TagTrackSegment {
		return Point{}, faults.New("center-of").
			Kind(segment.Tag).
			Key(id).
			Context("only track segments have a center").
			Cause(faults.ErrLookup).
			Err()
	}
	a, err := ix.MarginCoordinate(segment.SelectAttrValue("connect1name", ""), id)
	if err != nil {
		return Point{}, err
	}
	b, err := ix.MarginCoordinate(segment.SelectAttrValue("connect2name", ""), id)
	if err != nil {
		return Point{}, err
	}
	return a.Mid(b), nil
}

// MissingLocation records a location whose coordinate could not be resolved.
type MissingLocation struct {
	Location string
	Reason   error
}

// LocationCoordinates returns the center of the first track segment of each location's
// block. Locations with no segment, or whose segment hits a lookup fault, are returned as
// missing. Format faults abort.
func (ix *Index) LocationCoordinates(locations []string) (map[string]Point, []MissingLocation, error) {
	out := make(map[string]Point, len(locations))
	var missing []MissingLocation
	for _, loc := range locations {
		seg := document.FindByAttr(ix.panel, TagTrackSegment, "blockname", loc)
		if seg == nil {
			missing = append(missing, MissingLocation{
				Location: loc,
				Reason:   faults.LookupError("location-coordinates", loc, "no track segment in block"),
			})
			continue
		}
		p, err := ix.CenterOfElement(seg)
		if err != nil {
			if faults.IsLookup(err) {
				missing = append(missing, MissingLocation{Location: loc, Reason: err})
				continue
			}
			return nil, nil, err
		}
		out[loc] = p
	}
	return out, missing, nil
}

// DanglingRef is a connection naming an ident the panel does not contain.
type DanglingRef struct {
	From   string
	Attr   string
	Target string
}

// CheckConnectivity lists every connection whose target is missing from the panel.
func (ix *Index) CheckConnectivity() []DanglingRef {
	var out []DanglingRef
	for _, id := range ix.identOrder {
		e := ix.idents[id]
		for _, a := range e.Attr {
			if a.Space != "" || a.Value == "" || !connectAttrPattern.MatchString(a.Key) {
				continue
			}
			if _, ok := ix.idents[a.Value]; !ok {
				out = append(out, DanglingRef{From: id, Attr: a.Key, Target: a.Value})
			}
		}
	}
	return out
}
