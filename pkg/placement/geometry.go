// Package placement computes where signal-head icons and their labels go on a
// LayoutEditor panel, from the track geometry around each location.
package placement

import (
	"math"

	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
)

// Rotation is the icon orientation, named after the direction a train travels past it.
type Rotation int

const (
	Left Rotation = iota
	Down
	Right
	Up
)

func (r Rotation) String() string {
	switch r {
	case Left:
		return "left"
	case Down:
		return "down"
	case Right:
		return "right"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// Vector is a direction on the panel. Y grows downward.
type Vector struct {
	DX float64
	DY float64
}

// VectorBetween returns the vector from a to b.
func VectorBetween(a, b layout.Point) Vector {
	d := b.Sub(a)
	return Vector{DX: d.X, DY: d.Y}
}

// Classify picks the rotation that best matches v. Ties between axes go vertical.
func Classify(v Vector) Rotation {
	if math.Abs(v.DY) < math.Abs(v.DX) {
		if v.DX < 0 {
			return Left
		}
		return Right
	}
	if v.DY < 0 {
		return Up
	}
	return Down
}

// labelLineHeight is the height of a size 12 label.
const labelLineHeight = 12

// Geometry holds the pixel constants of icon placement.
type Geometry struct {
	// Back is how far behind the head point, along the track, the signal starts.
	Back float64
	// Away is how far from the track the signal sits.
	Away float64
	// IconHalf is half the icon size; icons are positioned by their top-left corner.
	IconHalf float64
	// CharWidth is the approximate width of one label character.
	CharWidth float64
	// LabelGap separates a label from its icon.
	LabelGap float64
}

// DefaultGeometry returns the constants used by the stock panel.
func DefaultGeometry() Geometry {
	return Geometry{Back: 5, Away: 10, IconHalf: 8, CharWidth: 7, LabelGap: 4}
}

// SignalOffset returns the signal position relative to the head point.
func (g Geometry) SignalOffset(r Rotation) layout.Point {
	switch r {
	case Left:
		return layout.Point{X: g.Back, Y: g.Away}
	case Down:
		return layout.Point{X: g.Away, Y: -g.Back}
	case Right:
		return layout.Point{X: -g.Back, Y: -g.Away}
	default:
		return layout.Point{X: -g.Away, Y: g.Back}
	}
}

// LabelOffset returns the label position relative to the signal point, keeping the label
// on the side of the icon away from the track.
func (g Geometry) LabelOffset(r Rotation, textLen int) layout.Point {
	width := float64(textLen) * g.CharWidth
	switch r {
	case Left:
		return layout.Point{X: g.LabelGap, Y: g.Away + g.LabelGap}
	case Down:
		return layout.Point{X: g.Away + g.LabelGap, Y: 0}
	case Right:
		return layout.Point{X: -width - g.LabelGap, Y: -g.Away - g.LabelGap - labelLineHeight}
	default:
		return layout.Point{X: -g.Away - g.LabelGap - width, Y: 0}
	}
}
