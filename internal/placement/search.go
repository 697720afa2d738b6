// Package placement finds free positions for items, detects collisions and
// resolves drop previews inside a single grid.
package placement

import (
	"errors"
	"sort"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/item"
)

var (
	// ErrNoSpace is the recoverable outcome of a search that found no free
	// anchor. Callers decide whether to reject the item or abort a batch.
	ErrNoSpace = errors.New("placement: no space available")
	// ErrInvalidDrop marks a drop outside the grid or onto several items.
	ErrInvalidDrop = errors.New("placement: invalid drop position")
)

// Overlaps reports whether two boxes intersect. Boxes that only border each
// other do not overlap.
func Overlaps(a, b geom.Rect) bool {
	return a.Overlaps(b)
}

// FindFreePosition scans anchors row by row, left to right, and returns the
// first one where footprint stays inside the grid without intersecting a
// stored entry. The scan order is the placement policy.
func FindFreePosition(g *grid.Grid, footprint item.Dimensions) (grid.Point, error) {
	anchors := freeAnchors(g, footprint, nil)
	if len(anchors) == 0 {
		return grid.Point{}, ErrNoSpace
	}
	return anchors[0], nil
}

// freeAnchors lists every anchor free in the model, in scan order.
func freeAnchors(g *grid.Grid, footprint item.Dimensions, exclude *grid.Entry) []grid.Point {
	var out []grid.Point
	for y := 0; y < g.Model.Rows; y++ {
		for x := 0; x < g.Model.Columns; x++ {
			p := grid.Point{X: x, Y: y}
			if !g.Model.Fits(p, footprint) {
				continue
			}
			if g.Check(p, footprint, exclude) == nil {
				out = append(out, p)
			}
		}
	}
	return out
}

// OverlappingEntries returns the entries whose box intersects box, nearest
// to ref first. Entries at equal distance keep their storage order.
func OverlappingEntries(g *grid.Grid, box geom.Rect, ref geom.Vec, exclude *grid.Entry) []*grid.Entry {
	var out []*grid.Entry
	for _, e := range g.Entries() {
		if e == exclude {
			continue
		}
		if e.Box().Overlaps(box) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return geom.Distance(out[i].Box().Min, ref) < geom.Distance(out[j].Box().Min, ref)
	})
	return out
}

// OverlappingSlots returns the slots intersecting box, nearest to ref first,
// ties resolved in row-major order.
func OverlappingSlots(m grid.Model, box geom.Rect, ref geom.Vec) []grid.Point {
	one := item.Dimensions{Width: 1, Height: 1}
	var out []grid.Point
	for _, p := range m.Slots() {
		if m.SlotRect(p, one).Overlaps(box) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return geom.Distance(m.SlotToPosition(out[i]), ref) < geom.Distance(m.SlotToPosition(out[j]), ref)
	})
	return out
}
