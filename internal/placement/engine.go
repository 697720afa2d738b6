package placement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
)

// Resolver looks up item definitions for persisted records.
type Resolver interface {
	Lookup(id item.ID) (*item.Definition, bool)
}

// Policy decides what a batch load does when an entry does not fit.
type Policy int

const (
	// PolicyPartial rejects entries that do not fit and keeps going.
	PolicyPartial Policy = iota
	// PolicyAllOrNothing undoes the whole batch on the first entry that does
	// not fit.
	PolicyAllOrNothing
)

// ParsePolicy maps configuration names to a policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "partial":
		return PolicyPartial, nil
	case "all_or_nothing":
		return PolicyAllOrNothing, nil
	default:
		return PolicyPartial, fmt.Errorf("unknown load policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyAllOrNothing {
		return "all_or_nothing"
	}
	return "partial"
}

// Option configures an Engine.
type Option func(*Engine)

// WithRestorePositions makes batch loads try each record's saved anchor
// before scanning.
func WithRestorePositions(enabled bool) Option {
	return func(e *Engine) {
		e.restorePositions = enabled
	}
}

// Engine places instances into grids through the host layout. Every
// candidate anchor is proposed to the instance handle, the engine waits for
// the layout pass to settle and only then trusts the read-back box.
type Engine struct {
	presenter        layout.Presenter
	probe            *layout.Probe
	resolver         Resolver
	restorePositions bool
}

// NewEngine constructs an engine.
func NewEngine(p layout.Presenter, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		presenter: p,
		probe:     layout.NewProbe(p),
		resolver:  resolver,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Probe exposes the engine's layout probe so other components share its
// ordering guarantee.
func (e *Engine) Probe() *layout.Probe { return e.probe }

// Resolver returns the definition lookup used for records.
func (e *Engine) Resolver() Resolver { return e.resolver }

// RestoresPositions reports whether batch loads honour saved anchors.
func (e *Engine) RestoresPositions() bool { return e.restorePositions }

// Presenter returns the presentation host the engine drives.
func (e *Engine) Presenter() layout.Presenter { return e.presenter }

// Attach creates the presentation handle of inst inside g if the grid is
// shown and the instance has none yet.
func (e *Engine) Attach(g *grid.Grid, inst *grid.Instance) {
	if inst.Handle != nil || g.Handle == nil || e.presenter == nil {
		return
	}
	size := g.Model.FootprintSize(inst.Footprint)
	inst.Handle = e.presenter.NewItem(g.Handle, layout.ItemSpec{
		InstanceID:   inst.ID,
		DefinitionID: string(inst.Def.ID),
		Name:         inst.Def.Name,
		Icon:         inst.Def.Icon,
		Size:         size,
	})
	inst.Handle.SetSize(size)
	inst.Handle.SetRotation(inst.RotationDegrees())
	inst.Handle.SetVisible(false)
}

// Detach releases the presentation handle of inst.
func (e *Engine) Detach(inst *grid.Instance) {
	if inst.Handle == nil {
		return
	}
	if e.presenter != nil {
		e.presenter.Release(inst.Handle)
	}
	inst.Handle = nil
}

// Place finds a free anchor for inst in g and stores it there. On failure
// the handle attached for the search is released again.
func (e *Engine) Place(ctx context.Context, g *grid.Grid, inst *grid.Instance) (*grid.Entry, error) {
	release, err := g.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	entry, err := e.place(ctx, g, inst, nil)
	if err != nil {
		e.Detach(inst)
		return nil, err
	}
	return entry, nil
}

func (e *Engine) place(ctx context.Context, g *grid.Grid, inst *grid.Instance, preferred *grid.Point) (*grid.Entry, error) {
	candidates := freeAnchors(g, inst.Footprint, nil)
	if preferred != nil && g.Check(*preferred, inst.Footprint, nil) == nil {
		candidates = append([]grid.Point{*preferred}, candidates...)
	}
	if len(candidates) == 0 {
		return nil, ErrNoSpace
	}

	e.Attach(g, inst)
	if g.Handle == nil || inst.Handle == nil {
		// nothing on screen to measure; the model is authoritative
		return g.Insert(inst.Def, inst, candidates[0])
	}

	bounds := g.Model.Bounds()
	for _, p := range candidates {
		if err := e.probe.Propose(inst.Handle, g.Model.SlotToPosition(p)); err != nil {
			return nil, err
		}
		if err := e.probe.Settle(ctx); err != nil {
			return nil, err
		}
		box, err := e.probe.Read()
		if err != nil {
			return nil, err
		}
		local := box.Translate(g.Origin().Mul(-1))
		if !bounds.ContainsRect(local) || len(OverlappingEntries(g, local, local.Min, nil)) > 0 {
			continue
		}
		entry, err := g.Insert(inst.Def, inst, p)
		if err != nil {
			continue
		}
		inst.Handle.SetVisible(true)
		return entry, nil
	}
	return nil, ErrNoSpace
}

// LoadResult reports the outcome of a batch load.
type LoadResult struct {
	Placed   []*grid.Entry
	Rejected []grid.Record
}

// Complete reports whether every record was placed.
func (r LoadResult) Complete() bool { return len(r.Rejected) == 0 }

// Load places every record that is not already stored in g. With
// PolicyPartial records that do not fit are rejected and the load goes on;
// with PolicyAllOrNothing the first rejection undoes the batch and Load
// returns ErrNoSpace with nothing committed.
func (e *Engine) Load(ctx context.Context, g *grid.Grid, records []grid.Record, policy Policy) (LoadResult, error) {
	release, err := g.Acquire()
	if err != nil {
		return LoadResult{}, err
	}
	defer release()

	var res LoadResult
	rollback := func() {
		for _, placed := range res.Placed {
			_ = g.Remove(placed)
			e.Detach(placed.Item)
		}
		res.Placed = nil
		res.Rejected = append([]grid.Record(nil), records...)
	}

	for _, rec := range records {
		if rec.InstanceID != "" {
			if _, stored := g.Find(rec.InstanceID); stored {
				continue
			}
		}
		def, ok := e.lookup(rec.DefinitionID)
		if !ok {
			log.Printf("Unknown item definition %s in %s, skipping", rec.DefinitionID, g.Key)
			if policy == PolicyAllOrNothing {
				rollback()
				return res, fmt.Errorf("load %s: unknown definition %s: %w", g.Key, rec.DefinitionID, ErrNoSpace)
			}
			res.Rejected = append(res.Rejected, rec)
			continue
		}

		inst := grid.NewInstanceWithID(rec.InstanceID, def)
		inst.SetOrientation(rec.Rotated)
		var preferred *grid.Point
		if e.restorePositions {
			preferred = rec.Position
		}

		entry, err := e.place(ctx, g, inst, preferred)
		if err != nil {
			e.Detach(inst)
			if !errors.Is(err, ErrNoSpace) {
				if policy == PolicyAllOrNothing {
					rollback()
				}
				return res, fmt.Errorf("load %s: %w", g.Key, err)
			}
			log.Printf("No space for %s in %s", def.Name, g.Key)
			if policy == PolicyAllOrNothing {
				rollback()
				return res, fmt.Errorf("load %s: %w", g.Key, ErrNoSpace)
			}
			res.Rejected = append(res.Rejected, rec)
			continue
		}
		res.Placed = append(res.Placed, entry)
	}
	return res, nil
}

func (e *Engine) lookup(id item.ID) (*item.Definition, bool) {
	if e.resolver == nil {
		return nil, false
	}
	return e.resolver.Lookup(id)
}
