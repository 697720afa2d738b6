// Package geom provides the axis-aligned rectangle math shared by grids,
// the placement engine and presentation hosts. Coordinates are layout units
// with the origin at the top-left and Y growing downwards.
package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon absorbs rounding noise in boxes reported back by a host layout pass.
const Epsilon = 1e-6

// Vec is a 2D position or extent in layout units.
type Vec = mgl64.Vec2

// Rect is an axis-aligned rectangle spanning [Min, Max).
type Rect struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

// RectAt builds a rectangle from its top-left corner and size.
func RectAt(pos, size Vec) Rect {
	return Rect{Min: pos, Max: pos.Add(size)}
}

// Size returns the width and height of r.
func (r Rect) Size() Vec { return r.Max.Sub(r.Min) }

// Center returns the midpoint of r.
func (r Rect) Center() Vec { return r.Min.Add(r.Size().Mul(0.5)) }

// Translate returns r moved by d.
func (r Rect) Translate(d Vec) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Overlaps reports whether the interiors of r and o intersect. Rectangles
// that only share an edge or a corner do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X() < o.Max.X()-Epsilon && o.Min.X() < r.Max.X()-Epsilon &&
		r.Min.Y() < o.Max.Y()-Epsilon && o.Min.Y() < r.Max.Y()-Epsilon
}

// ContainsPoint reports whether p lies inside r, edges included.
func (r Rect) ContainsPoint(p Vec) bool {
	return p.X() >= r.Min.X()-Epsilon && p.X() <= r.Max.X()+Epsilon &&
		p.Y() >= r.Min.Y()-Epsilon && p.Y() <= r.Max.Y()+Epsilon
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return r.ContainsPoint(o.Min) && r.ContainsPoint(o.Max)
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	s := r.Size()
	return s.X() <= Epsilon || s.Y() <= Epsilon
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.1f,%.1f %.1fx%.1f]", r.Min.X(), r.Min.Y(), r.Size().X(), r.Size().Y())
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return a.Sub(b).Len()
}
