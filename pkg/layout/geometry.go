package layout

import (
	"slices"
	"strconv"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
)

// Point represents a 2D panel coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point { return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2} }

// Reflect returns the reflection of p through center.
func (p Point) Reflect(center Point) Point {
	return Point{X: 2*center.X - p.X, Y: 2*center.Y - p.Y}
}

// Ints truncates both coordinates toward zero.
func (p Point) Ints() (int, int) { return int(p.X), int(p.Y) }

// Set is a set of element idents.
type Set map[string]struct{}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the idents present in both sets.
func (s Set) Intersect(o Set) Set {
	out := Set{}
	for id := range s {
		if o.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union adds every ident of o to s.
func (s Set) Union(o Set) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// Sorted returns the idents in lexical order.
func (s Set) Sorted() []string {
	var ids []string
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func floatAttr(e *etree.Element, name string) (float64, error) {
	a := e.SelectAttr(name)
	if a == nil || a.Value == "" {
		return 0, faults.New("read-coordinate").
			Node(e.Tag).
			Key(e.SelectAttrValue("ident", "")).
			Field(name).
			Context("missing").
			Cause(faults.ErrFormat).
			Err()
	}
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0, faults.New("read-coordinate").
			Node(e.Tag).
			Key(e.SelectAttrValue("ident", "")).
			Field(name).
			Contextf("%q is not a number", a.Value).
			Cause(faults.ErrFormat).
			Err()
	}
	return v, nil
}

func pointAttr(e *etree.Element, xName, yName string) (Point, error) {
	x, err := floatAttr(e, xName)
	if err != nil {
		return Point{}, err
	}
	y, err := floatAttr(e, yName)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}
