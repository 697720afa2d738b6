package server

import (
	"context"
	"testing"
	"time"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
	"github.com/gravitas-games/gridinv/internal/network"
	"github.com/gravitas-games/gridinv/internal/placement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	parent int
	pos    geom.Vec
	size   geom.Vec
}

// fakeLayout plays the client side of the layout protocol. Grids are laid
// out left to right starting at the screen origin.
type fakeLayout struct {
	nodes map[int]*fakeNode
	nextX float64
}

func newFakeLayout() *fakeLayout {
	return &fakeLayout{nodes: make(map[int]*fakeNode)}
}

func (f *fakeLayout) apply(lp network.LayoutPayload) *network.LayoutSettledPayload {
	for _, cmd := range lp.Commands {
		switch cmd.Op {
		case network.OpCreateGrid:
			n := &fakeNode{
				pos:  geom.Vec{f.nextX, 0},
				size: geom.Vec{float64(cmd.Columns) * cmd.W, float64(cmd.Rows) * cmd.H},
			}
			f.nextX += n.size.X() + 10
			f.nodes[cmd.Handle] = n
		case network.OpCreateItem:
			f.nodes[cmd.Handle] = &fakeNode{parent: cmd.Parent, size: geom.Vec{cmd.W, cmd.H}}
		case network.OpCreateTelegraph:
			f.nodes[cmd.Handle] = &fakeNode{parent: cmd.Parent}
		case network.OpSetPosition:
			if n, ok := f.nodes[cmd.Handle]; ok {
				n.pos = geom.Vec{cmd.X, cmd.Y}
			}
		case network.OpSetSize:
			if n, ok := f.nodes[cmd.Handle]; ok {
				n.size = geom.Vec{cmd.W, cmd.H}
			}
		case network.OpRelease:
			for id, n := range f.nodes {
				if n.parent == cmd.Handle {
					delete(f.nodes, id)
				}
			}
			delete(f.nodes, cmd.Handle)
		}
	}
	if !lp.Settle {
		return nil
	}
	reply := &network.LayoutSettledPayload{Pass: lp.Pass}
	for id := range f.nodes {
		box := f.box(id)
		reply.Boxes = append(reply.Boxes, network.Box{
			Handle: id, X: box.Min.X(), Y: box.Min.Y(), W: box.Size().X(), H: box.Size().Y(),
		})
	}
	return reply
}

func (f *fakeLayout) box(id int) geom.Rect {
	n := f.nodes[id]
	origin := geom.Vec{}
	if _, ok := f.nodes[n.parent]; ok {
		origin = f.box(n.parent).Min
	}
	return geom.RectAt(origin.Add(n.pos), n.size)
}

// newLoopbackPresenter answers every settle request synchronously.
func newLoopbackPresenter(t *testing.T) (*remotePresenter, *fakeLayout, *[]network.LayoutPayload) {
	t.Helper()
	client := newFakeLayout()
	var sent []network.LayoutPayload
	var p *remotePresenter
	p = newRemotePresenter(func(m *network.ServerMessage) {
		lp, ok := m.Payload.(network.LayoutPayload)
		require.True(t, ok, "unexpected message %s", m.Type)
		sent = append(sent, lp)
		if reply := client.apply(lp); reply != nil {
			p.deliver(*reply)
		}
	}, make(chan struct{}), time.Second)
	return p, client, &sent
}

func TestRemotePresenterPlacesThroughClient(t *testing.T) {
	p, _, sent := newLoopbackPresenter(t)
	svc := inventory.NewService(inventory.Config{
		Owner:    "p1",
		Columns:  10,
		Rows:     6,
		SlotSize: geom.Vec{50, 50},
	}, item.SampleCatalog(), p, nil)
	ctx := context.Background()

	sword, err := svc.AddItemByID(ctx, "sword")
	require.NoError(t, err)
	shield, err := svc.AddItemByID(ctx, "shield")
	require.NoError(t, err)

	assert.Equal(t, grid.Point{X: 0, Y: 0}, sword.Position)
	assert.Equal(t, grid.Point{X: 1, Y: 0}, shield.Position)
	assert.Equal(t, geom.RectAt(geom.Vec{50, 0}, geom.Vec{100, 100}), shield.Item.Handle.BoundingBox())

	settles := 0
	for _, lp := range *sent {
		if lp.Settle {
			settles++
		}
	}
	assert.GreaterOrEqual(t, settles, 2)
}

func TestRemotePresenterFlushSendsQueuedCommands(t *testing.T) {
	p, _, sent := newLoopbackPresenter(t)
	p.Flush()
	assert.Empty(t, *sent)

	g := p.NewGrid(layout.GridSpec{Key: "root", Columns: 2, Rows: 2, SlotSize: geom.Vec{10, 10}})
	g.SetVisible(true)
	p.Flush()

	require.Len(t, *sent, 1)
	lp := (*sent)[0]
	assert.False(t, lp.Settle)
	require.Len(t, lp.Commands, 2)
	assert.Equal(t, network.OpCreateGrid, lp.Commands[0].Op)
	assert.Equal(t, network.OpSetVisible, lp.Commands[1].Op)
	require.NotNil(t, lp.Commands[1].Visible)
	assert.True(t, *lp.Commands[1].Visible)
}

func TestRemotePresenterReleaseDropsChildren(t *testing.T) {
	p, client, _ := newLoopbackPresenter(t)
	g := p.NewGrid(layout.GridSpec{Key: "root", Columns: 2, Rows: 2, SlotSize: geom.Vec{10, 10}})
	p.NewItem(g, layout.ItemSpec{InstanceID: "a", Size: geom.Vec{10, 10}})
	p.NewTelegraph(g)
	require.NoError(t, p.AwaitSettled(context.Background()))
	assert.Len(t, p.handles, 3)

	p.Release(g)
	require.NoError(t, p.AwaitSettled(context.Background()))
	assert.Empty(t, p.handles)
	assert.Empty(t, client.nodes)
}

func TestRemotePresenterIgnoresStalePasses(t *testing.T) {
	var p *remotePresenter
	p = newRemotePresenter(func(m *network.ServerMessage) {
		lp := m.Payload.(network.LayoutPayload)
		p.deliver(network.LayoutSettledPayload{Pass: lp.Pass - 1})
		p.deliver(network.LayoutSettledPayload{
			Pass:  lp.Pass,
			Boxes: []network.Box{{Handle: 1, X: 5, Y: 6, W: 7, H: 8}},
		})
	}, make(chan struct{}), time.Second)

	h := p.NewGrid(layout.GridSpec{Key: "root", Columns: 1, Rows: 1, SlotSize: geom.Vec{7, 8}})
	require.NoError(t, p.AwaitSettled(context.Background()))
	assert.Equal(t, geom.RectAt(geom.Vec{5, 6}, geom.Vec{7, 8}), h.BoundingBox())
}

func TestRemotePresenterTimesOut(t *testing.T) {
	p := newRemotePresenter(func(*network.ServerMessage) {}, make(chan struct{}), 20*time.Millisecond)
	err := p.AwaitSettled(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemotePresenterStopsWhenConnectionCloses(t *testing.T) {
	done := make(chan struct{})
	close(done)
	p := newRemotePresenter(func(*network.ServerMessage) {}, done, 0)
	assert.ErrorIs(t, p.AwaitSettled(context.Background()), errConnectionClosed)
}

func TestRemotePresenterTimeoutFailsPlacement(t *testing.T) {
	p := newRemotePresenter(func(*network.ServerMessage) {}, make(chan struct{}), 20*time.Millisecond)
	svc := inventory.NewService(inventory.Config{
		Owner:    "p1",
		Columns:  4,
		Rows:     4,
		SlotSize: geom.Vec{50, 50},
	}, item.SampleCatalog(), p, nil)

	_, err := svc.AddItemByID(context.Background(), "potion")
	require.Error(t, err)
	assert.NotErrorIs(t, err, placement.ErrNoSpace)
	assert.Empty(t, svc.Root().Entries())
}
