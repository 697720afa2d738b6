// Package container keeps track of the nested grids of container items:
// which ones are open, what they hold while closed and how items are handed
// off into them.
package container

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
	"github.com/gravitas-games/gridinv/internal/placement"
)

var (
	// ErrNotContainer is returned for items without a nested grid.
	ErrNotContainer = errors.New("container: item has no nested grid")
	// ErrClosed is returned by Offer when hand-offs need an open target.
	ErrClosed = errors.New("container: target container is closed")
)

// Config holds the registry settings.
type Config struct {
	SlotSize geom.Vec
	// Policy is applied when a container's records are loaded on open.
	Policy placement.Policy
	// RequireOpen limits hand-offs to containers whose view is open.
	RequireOpen bool
}

// Registry owns every open container view and the persisted contents of
// closed ones. Contents are keyed by the container's instance ID.
type Registry struct {
	engine  *placement.Engine
	cfg     Config
	open    map[string]*grid.Container
	records map[string][]grid.Record
	// rejected holds records a partial load could not show; they are kept
	// so closing the view does not drop them.
	rejected map[string][]grid.Record

	// OnOpen, OnClose and OnRejected are optional observers.
	OnOpen     func(c *grid.Container)
	OnClose    func(inst *grid.Instance)
	OnRejected func(key string, rejected []grid.Record)
}

// NewRegistry creates a registry that places through engine.
func NewRegistry(engine *placement.Engine, cfg Config) *Registry {
	return &Registry{
		engine:   engine,
		cfg:      cfg,
		open:     make(map[string]*grid.Container),
		records:  make(map[string][]grid.Record),
		rejected: make(map[string][]grid.Record),
	}
}

// Open shows the nested grid of inst. Opening an open container returns the
// existing view unchanged.
func (r *Registry) Open(ctx context.Context, inst *grid.Instance) (*grid.Container, error) {
	if !inst.IsContainer() {
		return nil, ErrNotContainer
	}
	if c, ok := r.open[inst.ID]; ok {
		return c, nil
	}

	size := inst.Def.ContainerSize
	g := grid.New(inst.ID, grid.NewModel(size.Width, size.Height, r.cfg.SlotSize))
	p := r.engine.Presenter()
	if p != nil {
		g.Handle = p.NewGrid(layout.GridSpec{
			Key:      inst.ID,
			Title:    inst.Def.Name,
			Columns:  size.Width,
			Rows:     size.Height,
			SlotSize: r.cfg.SlotSize,
		})
		g.Telegraph = p.NewTelegraph(g.Handle)
		g.Telegraph.SetVisible(false)
		// the grid origin must be authoritative before anything is probed
		if err := r.engine.Probe().Sync(ctx); err != nil {
			r.releaseView(g)
			return nil, fmt.Errorf("open %s: %w", inst.ID, err)
		}
	}

	res, err := r.engine.Load(ctx, g, r.records[inst.ID], r.cfg.Policy)
	if err != nil {
		r.releaseView(g)
		r.notifyRejected(inst.ID, res.Rejected)
		return nil, fmt.Errorf("open %s: %w", inst.ID, err)
	}
	if len(res.Rejected) > 0 {
		r.rejected[inst.ID] = res.Rejected
		r.notifyRejected(inst.ID, res.Rejected)
	}

	c := grid.NewContainer(inst, g)
	inst.Nested = c
	r.open[inst.ID] = c
	if p != nil {
		if err := r.engine.Probe().Sync(ctx); err != nil {
			log.Printf("Layout pass after opening %s failed: %v", inst.ID, err)
		}
	}
	if r.OnOpen != nil {
		r.OnOpen(c)
	}
	return c, nil
}

// Close hides the nested grid of inst after closing every open container
// inside it, and keeps the contents for the next Open. Closing a closed
// container does nothing.
func (r *Registry) Close(inst *grid.Instance) error {
	c, ok := r.open[inst.ID]
	if !ok {
		return nil
	}
	for _, e := range c.Grid.Entries() {
		if e.Item.Nested != nil {
			if err := r.Close(e.Item); err != nil {
				return err
			}
		}
	}

	release, err := c.Grid.Acquire()
	if err != nil {
		return fmt.Errorf("close %s: %w", inst.ID, err)
	}
	defer release()

	recs := c.Grid.Records()
	recs = append(recs, r.rejected[inst.ID]...)
	delete(r.rejected, inst.ID)
	r.records[inst.ID] = recs

	for _, e := range c.Grid.Entries() {
		r.engine.Detach(e.Item)
	}
	r.releaseView(c.Grid)
	inst.Nested = nil
	delete(r.open, inst.ID)
	if r.OnClose != nil {
		r.OnClose(inst)
	}
	return nil
}

// Toggle opens a closed container or closes an open one and reports whether
// it ends up open.
func (r *Registry) Toggle(ctx context.Context, inst *grid.Instance) (bool, error) {
	if r.IsOpen(inst) {
		return false, r.Close(inst)
	}
	_, err := r.Open(ctx, inst)
	return err == nil, err
}

// IsOpen reports whether the view of inst is open.
func (r *Registry) IsOpen(inst *grid.Instance) bool {
	if inst == nil {
		return false
	}
	_, ok := r.open[inst.ID]
	return ok
}

// Get returns the open container with the given instance ID.
func (r *Registry) Get(instanceID string) (*grid.Container, bool) {
	c, ok := r.open[instanceID]
	return c, ok
}

// Containers lists the open containers in no particular order.
func (r *Registry) Containers() []*grid.Container {
	out := make([]*grid.Container, 0, len(r.open))
	for _, c := range r.open {
		out = append(out, c)
	}
	return out
}

// Accepts reports whether target may receive dragged as a hand-off.
func (r *Registry) Accepts(target, dragged *grid.Entry) bool {
	if target == nil || !target.Item.IsContainer() {
		return false
	}
	if dragged != nil && target.Item == dragged.Item {
		return false
	}
	return !r.cfg.RequireOpen || r.IsOpen(target.Item)
}

// Offer moves a copy of moving into the container target. An open container
// places it through the engine; a closed one, when allowed, gets a record at
// the first free anchor of its persisted contents. The caller removes the
// source entry only after Offer succeeds.
func (r *Registry) Offer(ctx context.Context, target, moving *grid.Instance) error {
	if !target.IsContainer() {
		return ErrNotContainer
	}
	if target.ID == moving.ID {
		return placement.ErrInvalidDrop
	}

	if c, ok := r.open[target.ID]; ok {
		inst := grid.NewInstanceWithID(moving.ID, moving.Def)
		inst.SetOrientation(moving.Rotated)
		if _, err := r.engine.Place(ctx, c.Grid, inst); err != nil {
			return fmt.Errorf("offer %s to %s: %w", moving.Def.ID, target.ID, err)
		}
		return nil
	}
	if r.cfg.RequireOpen {
		return ErrClosed
	}

	size := target.Def.ContainerSize
	shadow := grid.New(target.ID, grid.NewModel(size.Width, size.Height, r.cfg.SlotSize))
	r.restore(shadow, r.records[target.ID])
	inst := grid.NewInstanceWithID(moving.ID, moving.Def)
	inst.SetOrientation(moving.Rotated)
	p, err := placement.FindFreePosition(shadow, inst.Footprint)
	if err != nil {
		return fmt.Errorf("offer %s to %s: %w", moving.Def.ID, target.ID, err)
	}
	r.records[target.ID] = append(r.records[target.ID], grid.Record{
		InstanceID:   inst.ID,
		DefinitionID: inst.Def.ID,
		Position:     &p,
		Rotated:      inst.Rotated,
	})
	return nil
}

// restore rebuilds the occupancy of persisted records in g without any view,
// the same way Open would lay them out. Records without a usable anchor are
// packed with the scan.
func (r *Registry) restore(g *grid.Grid, recs []grid.Record) {
	var loose []grid.Record
	for _, rec := range recs {
		def, ok := r.resolve(rec)
		if !ok {
			continue
		}
		inst := grid.NewInstanceWithID(rec.InstanceID, def)
		inst.SetOrientation(rec.Rotated)
		if rec.Position == nil || !r.engine.RestoresPositions() {
			loose = append(loose, rec)
			continue
		}
		if _, err := g.Insert(def, inst, *rec.Position); err != nil {
			loose = append(loose, rec)
		}
	}
	for _, rec := range loose {
		def, _ := r.resolve(rec)
		inst := grid.NewInstanceWithID(rec.InstanceID, def)
		inst.SetOrientation(rec.Rotated)
		if p, err := placement.FindFreePosition(g, inst.Footprint); err == nil {
			_, _ = g.Insert(def, inst, p)
		}
	}
}

// Records returns the contents of the container with the given instance ID,
// live if its view is open.
func (r *Registry) Records(instanceID string) []grid.Record {
	if c, ok := r.open[instanceID]; ok {
		return append(c.Grid.Records(), r.rejected[instanceID]...)
	}
	return append([]grid.Record(nil), r.records[instanceID]...)
}

// SetRecords replaces the persisted contents of a closed container.
func (r *Registry) SetRecords(instanceID string, recs []grid.Record) {
	if len(recs) == 0 {
		delete(r.records, instanceID)
		return
	}
	r.records[instanceID] = append([]grid.Record(nil), recs...)
}

// Forget drops the contents of a container, and of every container stored
// in it, once the container leaves the inventory for good.
func (r *Registry) Forget(instanceID string) {
	recs := r.Records(instanceID)
	delete(r.records, instanceID)
	delete(r.rejected, instanceID)
	for _, rec := range recs {
		if rec.InstanceID != "" {
			r.Forget(rec.InstanceID)
		}
	}
}

// Snapshot returns the contents of every known container, open or closed.
func (r *Registry) Snapshot() map[string][]grid.Record {
	out := make(map[string][]grid.Record, len(r.records)+len(r.open))
	for id, recs := range r.records {
		out[id] = append([]grid.Record(nil), recs...)
	}
	for id := range r.open {
		out[id] = r.Records(id)
	}
	return out
}

func (r *Registry) resolve(rec grid.Record) (*item.Definition, bool) {
	res := r.engine.Resolver()
	if res == nil {
		return nil, false
	}
	return res.Lookup(rec.DefinitionID)
}

func (r *Registry) releaseView(g *grid.Grid) {
	p := r.engine.Presenter()
	if p == nil {
		return
	}
	if g.Telegraph != nil {
		p.Release(g.Telegraph)
		g.Telegraph = nil
	}
	if g.Handle != nil {
		p.Release(g.Handle)
		g.Handle = nil
	}
}

func (r *Registry) notifyRejected(key string, rejected []grid.Record) {
	if len(rejected) == 0 {
		return
	}
	log.Printf("Container %s rejected %d records", key, len(rejected))
	if r.OnRejected != nil {
		r.OnRejected(key, rejected)
	}
}
