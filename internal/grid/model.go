// Package grid provides the slot grids items are placed into: the pure slot
// geometry (Model), the occupancy list of a grid (Grid) and the live item
// instances stored in it.
package grid

import (
	"math"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/item"
)

// Point is a slot coordinate with origin at top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Model is the geometry of a grid: its extent in slots and the size of one
// slot in layout units. It is a plain value with no behaviour beyond
// coordinate conversion.
type Model struct {
	Columns  int      `json:"columns"`
	Rows     int      `json:"rows"`
	SlotSize geom.Vec `json:"slotSize"`
}

// NewModel builds a grid model.
func NewModel(columns, rows int, slotSize geom.Vec) Model {
	return Model{Columns: columns, Rows: rows, SlotSize: slotSize}
}

// Size returns the extent of the whole grid in layout units.
func (m Model) Size() geom.Vec {
	return geom.Vec{float64(m.Columns) * m.SlotSize.X(), float64(m.Rows) * m.SlotSize.Y()}
}

// Bounds returns the grid box in grid-local coordinates.
func (m Model) Bounds() geom.Rect {
	return geom.RectAt(geom.Vec{}, m.Size())
}

// SlotToPosition returns the grid-local top-left corner of slot p.
func (m Model) SlotToPosition(p Point) geom.Vec {
	return geom.Vec{float64(p.X) * m.SlotSize.X(), float64(p.Y) * m.SlotSize.Y()}
}

// PositionToSlot returns the slot containing the grid-local position v.
// Positions outside the grid map to slots outside the grid.
func (m Model) PositionToSlot(v geom.Vec) Point {
	if m.SlotSize.X() <= 0 || m.SlotSize.Y() <= 0 {
		return Point{}
	}
	return Point{
		X: int(math.Floor(v.X() / m.SlotSize.X())),
		Y: int(math.Floor(v.Y() / m.SlotSize.Y())),
	}
}

// IndexToPoint converts a row-major slot index to a slot coordinate.
func (m Model) IndexToPoint(i int) Point {
	if m.Columns <= 0 {
		return Point{}
	}
	return Point{X: i % m.Columns, Y: i / m.Columns}
}

// PointToIndex converts a slot coordinate to its row-major index, or -1 when
// p lies outside the grid.
func (m Model) PointToIndex(p Point) int {
	if !m.Contains(p) {
		return -1
	}
	return p.Y*m.Columns + p.X
}

// Contains reports whether p is a slot of the grid.
func (m Model) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Columns && p.Y < m.Rows
}

// Fits reports whether a footprint anchored at p stays inside the grid.
func (m Model) Fits(p Point, d item.Dimensions) bool {
	return d.Valid() && p.X >= 0 && p.Y >= 0 && p.X+d.Width <= m.Columns && p.Y+d.Height <= m.Rows
}

// SlotRect returns the grid-local box covered by a footprint anchored at p.
func (m Model) SlotRect(p Point, d item.Dimensions) geom.Rect {
	return geom.RectAt(m.SlotToPosition(p), m.FootprintSize(d))
}

// FootprintSize converts a footprint to layout units.
func (m Model) FootprintSize(d item.Dimensions) geom.Vec {
	return geom.Vec{float64(d.Width) * m.SlotSize.X(), float64(d.Height) * m.SlotSize.Y()}
}

// Slots lists every slot in row-major order.
func (m Model) Slots() []Point {
	if m.Columns <= 0 || m.Rows <= 0 {
		return nil
	}
	out := make([]Point, 0, m.Columns*m.Rows)
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Columns; x++ {
			out = append(out, Point{X: x, Y: y})
		}
	}
	return out
}
