package grid

import (
	"errors"
	"fmt"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
)

var (
	// ErrOutOfBounds is returned when a footprint does not fit the grid.
	ErrOutOfBounds = errors.New("grid: footprint exceeds grid bounds")
	// ErrOccupied is returned when a footprint would overlap another entry.
	ErrOccupied = errors.New("grid: footprint overlaps a stored item")
	// ErrNotStored is returned for entries that are not in the grid.
	ErrNotStored = errors.New("grid: entry is not stored in this grid")
	// ErrGridBusy is returned when a grid is mutated while another operation
	// holds it.
	ErrGridBusy = errors.New("grid: another operation is mutating this grid")
)

// Entry pairs a definition and its instance inside one grid.
type Entry struct {
	Def      *item.Definition
	Item     *Instance
	Position Point

	grid *Grid
	// rotated is the orientation committed at Position. A held instance may
	// be turned; the grid sees the change only once Move commits it.
	rotated bool
}

// Grid returns the grid the entry is stored in, or nil once removed.
func (e *Entry) Grid() *Grid { return e.grid }

// Box returns the grid-local box the entry occupies at rest.
func (e *Entry) Box() geom.Rect {
	if e.grid == nil {
		return geom.Rect{}
	}
	return e.grid.Model.SlotRect(e.Position, e.Footprint())
}

// Footprint returns the footprint committed at Position.
func (e *Entry) Footprint() item.Dimensions {
	if e.rotated {
		return e.Item.Def.Size.Rotated()
	}
	return e.Item.Def.Size
}

// Rotated reports the orientation committed at Position.
func (e *Entry) Rotated() bool { return e.rotated }

// Record converts the entry to its persisted form.
func (e *Entry) Record() Record {
	pos := e.Position
	return Record{
		InstanceID:   e.Item.ID,
		DefinitionID: e.Def.ID,
		Position:     &pos,
		Rotated:      e.rotated,
	}
}

// Grid is one occupancy space: the root inventory or the inside of a
// container. Overlap rules never cross grid boundaries.
type Grid struct {
	Key   string
	Model Model
	// Handle and Telegraph are attached by the inventory service when the
	// grid is shown.
	Handle    layout.Handle
	Telegraph layout.Handle
	// Owner is the container item this grid belongs to; nil for the root.
	Owner *Instance

	entries []*Entry
	busy    bool
}

// New creates an empty grid.
func New(key string, m Model) *Grid {
	return &Grid{Key: key, Model: m, entries: make([]*Entry, 0)}
}

// Entries returns the stored entries in insertion order.
func (g *Grid) Entries() []*Entry {
	out := make([]*Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Len returns the number of stored entries.
func (g *Grid) Len() int { return len(g.entries) }

// Find returns the entry holding the instance with the given ID.
func (g *Grid) Find(instanceID string) (*Entry, bool) {
	for _, e := range g.entries {
		if e.Item.ID == instanceID {
			return e, true
		}
	}
	return nil, false
}

// Origin returns the on-screen top-left corner of the grid view.
func (g *Grid) Origin() geom.Vec {
	if g.Handle == nil {
		return geom.Vec{}
	}
	return g.Handle.BoundingBox().Min
}

// Check reports why a footprint could not rest at p, ignoring exclude.
func (g *Grid) Check(p Point, d item.Dimensions, exclude *Entry) error {
	if !g.Model.Fits(p, d) {
		return ErrOutOfBounds
	}
	box := g.Model.SlotRect(p, d)
	for _, e := range g.entries {
		if e == exclude {
			continue
		}
		if e.Box().Overlaps(box) {
			return ErrOccupied
		}
	}
	return nil
}

// Insert stores inst at p.
func (g *Grid) Insert(def *item.Definition, inst *Instance, p Point) (*Entry, error) {
	if err := g.Check(p, inst.Footprint, nil); err != nil {
		return nil, fmt.Errorf("insert %s at %d,%d: %w", def.ID, p.X, p.Y, err)
	}
	e := &Entry{Def: def, Item: inst, Position: p, grid: g, rotated: inst.Rotated}
	g.entries = append(g.entries, e)
	return e, nil
}

// Move re-anchors a stored entry and commits the current orientation of its
// instance.
func (g *Grid) Move(e *Entry, p Point) error {
	if e.grid != g {
		return ErrNotStored
	}
	if err := g.Check(p, e.Item.Footprint, e); err != nil {
		return fmt.Errorf("move %s to %d,%d: %w", e.Def.ID, p.X, p.Y, err)
	}
	e.Position = p
	e.rotated = e.Item.Rotated
	return nil
}

// Remove deletes e from the grid.
func (g *Grid) Remove(e *Entry) error {
	for i, cur := range g.entries {
		if cur == e {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			e.grid = nil
			return nil
		}
	}
	return ErrNotStored
}

// Acquire claims the grid for a mutating operation. The returned release
// function must be called once the operation finishes.
func (g *Grid) Acquire() (func(), error) {
	if g.busy {
		return nil, ErrGridBusy
	}
	g.busy = true
	released := false
	return func() {
		if !released {
			released = true
			g.busy = false
		}
	}, nil
}

// Busy reports whether an operation currently holds the grid.
func (g *Grid) Busy() bool { return g.busy }

// Records snapshots the stored entries in insertion order.
func (g *Grid) Records() []Record {
	out := make([]Record, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e.Record())
	}
	return out
}
