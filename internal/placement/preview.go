package placement

import (
	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
)

// Outcome classifies a drop preview.
type Outcome int

const (
	// Blocked means the drop would revert.
	Blocked Outcome = iota
	// CanPlace means the item may rest at Target.
	CanPlace
	// BlockedByContainer means the drop target is a single container item
	// that may accept the dragged item.
	BlockedByContainer
)

func (o Outcome) String() string {
	switch o {
	case CanPlace:
		return "can_place"
	case BlockedByContainer:
		return "container"
	default:
		return "blocked"
	}
}

// Preview is the live answer to "what happens if the item is dropped now".
type Preview struct {
	Outcome Outcome
	// Target is the anchor the item would snap to.
	Target grid.Point
	// Telegraph is the grid-local highlight box; empty when hidden.
	Telegraph geom.Rect
	// Container is the target container entry for BlockedByContainer.
	Container *grid.Entry
	// Reason explains a Blocked outcome.
	Reason error
}

// Visible reports whether the telegraph should be shown.
func (p Preview) Visible() bool { return p.Outcome == CanPlace }

// AcceptFunc decides whether an overlapped entry may receive a hand-off.
type AcceptFunc func(target *grid.Entry) bool

// PreviewDrop evaluates the drop of dragged whose live box is live, in
// grid-local coordinates. The item hanging over the bottom or right edge of
// the grid is an invalid drop; otherwise the nearest overlapped slot becomes
// the target anchor.
func PreviewDrop(g *grid.Grid, dragged *grid.Entry, live geom.Rect, accepts AcceptFunc) Preview {
	if !g.Model.Bounds().ContainsPoint(live.Max) {
		return Preview{Outcome: Blocked, Reason: ErrInvalidDrop}
	}
	slots := OverlappingSlots(g.Model, live, live.Min)
	if len(slots) == 0 {
		return Preview{Outcome: Blocked, Reason: ErrInvalidDrop}
	}
	target := slots[0]
	footprint := dragged.Item.Footprint
	if !g.Model.Fits(target, footprint) {
		return Preview{Outcome: Blocked, Target: target, Reason: grid.ErrOutOfBounds}
	}
	telegraph := g.Model.SlotRect(target, footprint)

	others := OverlappingEntries(g, telegraph, telegraph.Min, dragged)
	switch {
	case len(others) == 0:
		return Preview{Outcome: CanPlace, Target: target, Telegraph: telegraph}
	case len(others) == 1 && accepts != nil && accepts(others[0]):
		return Preview{Outcome: BlockedByContainer, Target: target, Container: others[0]}
	default:
		return Preview{Outcome: Blocked, Target: target, Reason: ErrInvalidDrop}
	}
}
