package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/layout"
	"github.com/gravitas-games/gridinv/internal/network"
)

var errConnectionClosed = errors.New("connection closed while waiting for layout")

// remotePresenter drives a layout.Presenter that lives in the client. Handle
// changes are queued as commands and shipped in batches; a settle request
// ships the batch and blocks until the client reports the resulting boxes.
//
// Everything except deliver runs on the connection's inventory goroutine.
type remotePresenter struct {
	send    func(*network.ServerMessage)
	settled chan network.LayoutSettledPayload
	done    <-chan struct{}
	timeout time.Duration

	handles  map[int]*remoteHandle
	nextID   int
	pass     int
	commands []network.LayoutCommand
}

func newRemotePresenter(send func(*network.ServerMessage), done <-chan struct{}, timeout time.Duration) *remotePresenter {
	return &remotePresenter{
		send:    send,
		settled: make(chan network.LayoutSettledPayload, 4),
		done:    done,
		timeout: timeout,
		handles: make(map[int]*remoteHandle),
	}
}

type remoteHandle struct {
	p      *remotePresenter
	id     int
	parent *remoteHandle
	box    geom.Rect
}

func (h *remoteHandle) BoundingBox() geom.Rect { return h.box }

func (h *remoteHandle) SetPosition(pos geom.Vec) {
	h.p.queue(network.LayoutCommand{Op: network.OpSetPosition, Handle: h.id, X: pos.X(), Y: pos.Y()})
}

func (h *remoteHandle) SetSize(size geom.Vec) {
	h.p.queue(network.LayoutCommand{Op: network.OpSetSize, Handle: h.id, W: size.X(), H: size.Y()})
}

func (h *remoteHandle) SetVisible(visible bool) {
	h.p.queue(network.LayoutCommand{Op: network.OpSetVisible, Handle: h.id, Visible: &visible})
}

func (h *remoteHandle) SetRotation(degrees float64) {
	h.p.queue(network.LayoutCommand{Op: network.OpSetRotation, Handle: h.id, Degrees: degrees})
}

func (h *remoteHandle) BringToFront() {
	h.p.queue(network.LayoutCommand{Op: network.OpBringToFront, Handle: h.id})
}

func (p *remotePresenter) queue(cmd network.LayoutCommand) {
	p.commands = append(p.commands, cmd)
}

func (p *remotePresenter) create(parent layout.Handle, cmd network.LayoutCommand) *remoteHandle {
	p.nextID++
	h := &remoteHandle{p: p, id: p.nextID}
	if ph, ok := parent.(*remoteHandle); ok {
		h.parent = ph
		cmd.Parent = ph.id
	}
	cmd.Handle = h.id
	p.handles[h.id] = h
	p.queue(cmd)
	return h
}

func (p *remotePresenter) NewGrid(spec layout.GridSpec) layout.Handle {
	return p.create(nil, network.LayoutCommand{
		Op:      network.OpCreateGrid,
		Key:     spec.Key,
		Title:   spec.Title,
		Columns: spec.Columns,
		Rows:    spec.Rows,
		W:       spec.SlotSize.X(),
		H:       spec.SlotSize.Y(),
	})
}

func (p *remotePresenter) NewItem(grid layout.Handle, spec layout.ItemSpec) layout.Handle {
	return p.create(grid, network.LayoutCommand{
		Op:    network.OpCreateItem,
		Key:   spec.InstanceID,
		Title: spec.Name,
		Icon:  spec.Icon,
		W:     spec.Size.X(),
		H:     spec.Size.Y(),
	})
}

func (p *remotePresenter) NewTelegraph(grid layout.Handle) layout.Handle {
	return p.create(grid, network.LayoutCommand{Op: network.OpCreateTelegraph})
}

// Release drops h and every handle parented to it.
func (p *remotePresenter) Release(h layout.Handle) {
	rh, ok := h.(*remoteHandle)
	if !ok {
		return
	}
	for id, other := range p.handles {
		if other.parent == rh {
			delete(p.handles, id)
		}
	}
	delete(p.handles, rh.id)
	p.queue(network.LayoutCommand{Op: network.OpRelease, Handle: rh.id})
}

// RequestLayout is implied by the next AwaitSettled.
func (p *remotePresenter) RequestLayout() {}

// AwaitSettled ships the queued commands and waits for the client to report
// the boxes of the finished pass.
func (p *remotePresenter) AwaitSettled(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	p.pass++
	pass := p.pass
	p.send(&network.ServerMessage{
		Type:    network.MsgTypeLayout,
		Payload: network.LayoutPayload{Pass: pass, Settle: true, Commands: p.take()},
	})

	for {
		select {
		case s := <-p.settled:
			if s.Pass != pass {
				log.Printf("Ignoring stale layout pass %d (waiting for %d)", s.Pass, pass)
				continue
			}
			p.apply(s.Boxes)
			return nil
		case <-ctx.Done():
			return fmt.Errorf("layout pass %d: %w", pass, ctx.Err())
		case <-p.done:
			return errConnectionClosed
		}
	}
}

// Flush ships queued commands that need no reply.
func (p *remotePresenter) Flush() {
	if len(p.commands) == 0 {
		return
	}
	p.send(&network.ServerMessage{
		Type:    network.MsgTypeLayout,
		Payload: network.LayoutPayload{Commands: p.take()},
	})
}

// deliver is called by the read pump with a client reply.
func (p *remotePresenter) deliver(s network.LayoutSettledPayload) {
	select {
	case p.settled <- s:
	default:
		log.Printf("Dropping layout reply for pass %d, nobody is waiting", s.Pass)
	}
}

func (p *remotePresenter) take() []network.LayoutCommand {
	cmds := p.commands
	p.commands = nil
	if cmds == nil {
		cmds = []network.LayoutCommand{}
	}
	return cmds
}

func (p *remotePresenter) apply(boxes []network.Box) {
	for _, b := range boxes {
		if h, ok := p.handles[b.Handle]; ok {
			h.box = geom.RectAt(geom.Vec{b.X, b.Y}, geom.Vec{b.W, b.H})
		}
	}
}
