package drag

import (
	"context"
	"errors"
	"testing"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
	"github.com/gravitas-games/gridinv/internal/placement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slot = geom.Vec{50, 50}

type fakeReceiver struct {
	err     error
	targets []*grid.Entry
}

func (f *fakeReceiver) Accepts(target, dragged *grid.Entry) bool {
	return target.Item.IsContainer() && target != dragged
}

func (f *fakeReceiver) HandOff(_ context.Context, target, dragged *grid.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.targets = append(f.targets, target)
	return dragged.Grid().Remove(dragged)
}

type fixture struct {
	scene   *layout.Scene
	engine  *placement.Engine
	catalog *item.Catalog
	grid    *grid.Grid
	recv    *fakeReceiver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scene := layout.NewScene(geom.Vec{}, 0)
	catalog := item.SampleCatalog()
	g := grid.New("root", grid.NewModel(4, 4, slot))
	g.Handle = scene.NewGrid(layout.GridSpec{Key: "root", Columns: 4, Rows: 4, SlotSize: slot})
	g.Telegraph = scene.NewTelegraph(g.Handle)
	g.Telegraph.SetVisible(false)
	require.NoError(t, scene.AwaitSettled(context.Background()))
	return &fixture{scene: scene, engine: placement.NewEngine(scene, catalog), catalog: catalog, grid: g, recv: &fakeReceiver{}}
}

func (f *fixture) add(t *testing.T, id item.ID) *grid.Entry {
	t.Helper()
	def, ok := f.catalog.Lookup(id)
	require.True(t, ok)
	e, err := f.engine.Place(context.Background(), f.grid, grid.NewInstance(def))
	require.NoError(t, err)
	return e
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.scene.AwaitSettled(context.Background()))
}

func (f *fixture) telegraphShown() bool {
	for _, n := range f.scene.Nodes() {
		if n.Kind == layout.KindTelegraph {
			return true
		}
	}
	return false
}

// centre of slot p in screen coordinates
func centre(p grid.Point) geom.Vec {
	return geom.Vec{float64(p.X)*50 + 25, float64(p.Y)*50 + 25}
}

func TestDragAndDropPlaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	assert.Equal(t, Dragging, c.State())
	assert.Same(t, potion, c.Held())

	p, err := c.PointerMove(centre(grid.Point{X: 2, Y: 1}))
	require.NoError(t, err)
	assert.Equal(t, placement.CanPlace, p.Outcome)
	assert.True(t, f.telegraphShown())

	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Placed, res.Outcome)
	assert.Equal(t, grid.Point{X: 2, Y: 1}, potion.Position)
	assert.Equal(t, Idle, c.State())
	assert.False(t, f.telegraphShown())

	f.settle(t)
	assert.Equal(t, geom.Vec{100, 50}, potion.Item.Handle.BoundingBox().Min)
}

func TestDropFullyOutsideReverts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "potion")
	sword := f.add(t, "sword")
	origin := sword.Position
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(sword, ButtonPrimary))
	for _, pos := range []geom.Vec{{1000, 1000}, {-400, 20}, {20, -400}} {
		p, err := c.PointerMove(pos)
		require.NoError(t, err)
		assert.Equal(t, placement.Blocked, p.Outcome)
	}
	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Reverted, res.Outcome)
	assert.ErrorIs(t, res.Err, placement.ErrInvalidDrop)
	assert.Equal(t, origin, sword.Position)

	f.settle(t)
	assert.Equal(t, f.grid.Model.SlotToPosition(origin), sword.Item.Handle.BoundingBox().Min)
}

func TestDropOntoOccupiedSlotReverts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	dagger := f.add(t, "dagger")
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	_, err := c.PointerMove(centre(dagger.Position))
	require.NoError(t, err)
	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Reverted, res.Outcome)
	assert.Equal(t, grid.Point{}, potion.Position)
}

func TestRotateTwiceIsIdentity(t *testing.T) {
	f := newFixture(t)
	sword := f.add(t, "sword")
	c := NewController(f.recv, false)
	require.NoError(t, c.PointerDown(sword, ButtonPrimary))

	_, err := c.Rotate(sword)
	require.NoError(t, err)
	assert.Equal(t, item.Dimensions{Width: 3, Height: 1}, sword.Item.Footprint)
	assert.Equal(t, geom.Vec{150, 50}, c.Live().Size())

	_, err = c.Rotate(sword)
	require.NoError(t, err)
	assert.Equal(t, item.Dimensions{Width: 1, Height: 3}, sword.Item.Footprint)
	assert.False(t, sword.Item.Rotated)
}

func TestRotateOnlyHeldItem(t *testing.T) {
	f := newFixture(t)
	sword := f.add(t, "sword")
	bow := f.add(t, "bow")
	c := NewController(f.recv, false)

	_, err := c.Rotate(sword)
	assert.ErrorIs(t, err, ErrNotDragging)

	require.NoError(t, c.PointerDown(sword, ButtonPrimary))
	_, err = c.Rotate(bow)
	assert.ErrorIs(t, err, ErrNotHeld)
	assert.Equal(t, item.Dimensions{Width: 2, Height: 1}, bow.Item.Footprint)
}

func TestRotatedDropKeepsOrientation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sword := f.add(t, "sword")
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(sword, ButtonPrimary))
	_, err := c.Rotate(sword)
	require.NoError(t, err)
	// centre of a 3x1 box anchored at (1,3)
	p, err := c.PointerMove(geom.Vec{125, 175})
	require.NoError(t, err)
	require.Equal(t, placement.CanPlace, p.Outcome)
	assert.Equal(t, grid.Point{X: 1, Y: 3}, p.Target)
	// the stored entry keeps its footprint until the drop commits
	assert.False(t, sword.Rotated())
	assert.Equal(t, item.Dimensions{Width: 1, Height: 3}, sword.Footprint())
	assert.False(t, f.grid.Records()[0].Rotated)

	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Placed, res.Outcome)
	assert.True(t, sword.Item.Rotated)
	assert.True(t, sword.Rotated())
	assert.True(t, f.grid.Records()[0].Rotated)
	assert.Equal(t, item.Dimensions{Width: 3, Height: 1}, sword.Item.Footprint)
}

func TestRevertRestoresOrientation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sword := f.add(t, "sword")
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(sword, ButtonPrimary))
	_, err := c.Rotate(sword)
	require.NoError(t, err)
	_, err = c.PointerMove(geom.Vec{900, 900})
	require.NoError(t, err)
	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Reverted, res.Outcome)
	assert.False(t, sword.Item.Rotated)
	assert.Equal(t, item.Dimensions{Width: 1, Height: 3}, sword.Item.Footprint)
}

func TestDropOntoContainerHandsOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	bag := f.add(t, "backpack")
	require.Equal(t, grid.Point{X: 1, Y: 0}, bag.Position)
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	p, err := c.PointerMove(centre(grid.Point{X: 2, Y: 1}))
	require.NoError(t, err)
	assert.Equal(t, placement.BlockedByContainer, p.Outcome)
	assert.False(t, f.telegraphShown())

	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, HandedOff, res.Outcome)
	assert.Same(t, bag, res.Container)
	assert.Equal(t, []*grid.Entry{bag}, f.recv.targets)
	assert.Equal(t, 1, f.grid.Len())
}

func TestFailedHandOffReverts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	f.add(t, "backpack")
	f.recv.err = placement.ErrNoSpace
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	_, err := c.PointerMove(centre(grid.Point{X: 2, Y: 1}))
	require.NoError(t, err)
	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Reverted, res.Outcome)
	assert.True(t, errors.Is(res.Err, placement.ErrNoSpace))
	assert.Equal(t, 2, f.grid.Len())
	assert.Equal(t, grid.Point{}, potion.Position)
}

func TestStickyPickup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	c := NewController(f.recv, true)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	assert.Equal(t, Idle, c.State())

	res, err := c.PointerUp(ctx, potion, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, PickedUp, res.Outcome)
	assert.Equal(t, Dragging, c.State())

	_, err = c.PointerMove(centre(grid.Point{X: 3, Y: 3}))
	require.NoError(t, err)
	res, err = c.PointerUp(ctx, potion, ButtonPrimary)
	require.NoError(t, err)
	assert.Equal(t, Placed, res.Outcome)
	assert.Equal(t, grid.Point{X: 3, Y: 3}, potion.Position)
}

func TestPointerGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	dagger := f.add(t, "dagger")
	c := NewController(f.recv, false)

	_, err := c.PointerMove(geom.Vec{10, 10})
	assert.ErrorIs(t, err, ErrNotDragging)
	_, err = c.PointerUp(ctx, nil, ButtonPrimary)
	assert.ErrorIs(t, err, ErrNotDragging)

	require.NoError(t, c.PointerDown(potion, ButtonSecondary))
	assert.Equal(t, Idle, c.State())

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	assert.ErrorIs(t, c.PointerDown(dagger, ButtonPrimary), ErrDragging)

	res := c.Cancel()
	assert.Equal(t, Reverted, res.Outcome)
	assert.Equal(t, Idle, c.State())
}

func TestPlaceRespectsGridGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	potion := f.add(t, "potion")
	c := NewController(f.recv, false)

	require.NoError(t, c.PointerDown(potion, ButtonPrimary))
	_, err := c.PointerMove(centre(grid.Point{X: 3, Y: 0}))
	require.NoError(t, err)

	release, err := f.grid.Acquire()
	require.NoError(t, err)
	res, err := c.PointerUp(ctx, nil, ButtonPrimary)
	release()
	require.NoError(t, err)
	assert.Equal(t, Reverted, res.Outcome)
	assert.ErrorIs(t, res.Err, grid.ErrGridBusy)
	assert.Equal(t, grid.Point{}, potion.Position)
}

func TestSubscriptionReleaseIsIdempotent(t *testing.T) {
	feed := NewFeed()
	var got []Event
	sub := Subscribe(feed, func(ev Event) { got = append(got, ev) })
	feed.Publish(Event{Kind: EventPointerDown, InstanceID: "a"})
	assert.Equal(t, 1, feed.Subscribers())

	sub.Release()
	sub.Release()
	feed.Publish(Event{Kind: EventPointerUp, InstanceID: "a"})
	assert.Len(t, got, 1)
	assert.Zero(t, feed.Subscribers())

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Release)
}
