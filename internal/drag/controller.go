// Package drag turns pointer input into item moves: it tracks the held item,
// keeps the drop preview current and resolves a release into a placement, a
// hand-off into a container or a revert.
package drag

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/placement"
)

var (
	// ErrNotDragging is returned for drag input while nothing is held.
	ErrNotDragging = errors.New("drag: no item is being dragged")
	// ErrNotHeld is returned when input names an item other than the held one.
	ErrNotHeld = errors.New("drag: item is not the held item")
	// ErrDragging is returned when a drag starts while another is running.
	ErrDragging = errors.New("drag: another item is already held")
)

// State of the controller.
type State int

const (
	// Idle holds nothing.
	Idle State = iota
	// Dragging follows the pointer with the held item.
	Dragging
	// Resolving is entered on release until the drop is settled.
	Resolving
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	default:
		return "idle"
	}
}

// Button identifies the pointer button of an event.
type Button int

const (
	// ButtonPrimary drags items.
	ButtonPrimary Button = iota
	// ButtonSecondary toggles containers.
	ButtonSecondary
)

// Outcome is what a pointer release did.
type Outcome int

const (
	None Outcome = iota
	PickedUp
	Placed
	HandedOff
	Reverted
)

func (o Outcome) String() string {
	switch o {
	case PickedUp:
		return "picked_up"
	case Placed:
		return "placed"
	case HandedOff:
		return "handed_off"
	case Reverted:
		return "reverted"
	default:
		return "none"
	}
}

// Result describes a resolved release.
type Result struct {
	Outcome Outcome
	Entry   *grid.Entry
	From    grid.Point
	To      grid.Point
	// Container is the hand-off target.
	Container *grid.Entry
	// Err is why a placement or hand-off fell back to a revert.
	Err error
}

// Receiver accepts hand-offs of dragged items into container items.
type Receiver interface {
	Accepts(target, dragged *grid.Entry) bool
	// HandOff moves dragged into target and removes it from its grid. It must
	// leave dragged untouched when it fails.
	HandOff(ctx context.Context, target, dragged *grid.Entry) error
}

// Controller is the drag state machine. One controller serves every grid of
// an inventory since only one item can be held at a time.
type Controller struct {
	recv   Receiver
	sticky bool

	state         State
	held          *grid.Entry
	grid          *grid.Grid
	origin        grid.Point
	originRotated bool
	live          geom.Rect
	preview       placement.Preview
}

// NewController creates an idle controller. In sticky mode a release picks
// the item up and the next release drops it.
func NewController(recv Receiver, sticky bool) *Controller {
	return &Controller{recv: recv, sticky: sticky}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Held returns the dragged entry, or nil while idle.
func (c *Controller) Held() *grid.Entry { return c.held }

// Preview returns the drop preview of the last pointer move or rotation.
func (c *Controller) Preview() placement.Preview { return c.preview }

// Sticky reports whether a release picks items up.
func (c *Controller) Sticky() bool { return c.sticky }

// Live returns the grid-local box of the held item.
func (c *Controller) Live() geom.Rect { return c.live }

// PointerDown starts dragging e on a primary press.
func (c *Controller) PointerDown(e *grid.Entry, button Button) error {
	if button != ButtonPrimary || c.sticky {
		return nil
	}
	return c.begin(e)
}

func (c *Controller) begin(e *grid.Entry) error {
	if c.state != Idle {
		return ErrDragging
	}
	if e == nil || e.Grid() == nil {
		return grid.ErrNotStored
	}
	c.state = Dragging
	c.held = e
	c.grid = e.Grid()
	c.origin = e.Position
	c.originRotated = e.Rotated()
	c.live = e.Box()
	if h := e.Item.Handle; h != nil {
		h.BringToFront()
	}
	c.refresh()
	return nil
}

// PointerMove follows the pointer with the held item. The pointer is in
// screen coordinates and grabs the item by its centre.
func (c *Controller) PointerMove(pointer geom.Vec) (placement.Preview, error) {
	if c.state != Dragging {
		return placement.Preview{}, ErrNotDragging
	}
	g := c.grid
	size := g.Model.FootprintSize(c.held.Item.Footprint)
	pos := pointer.Sub(size.Mul(0.5)).Sub(g.Origin())
	c.moveTo(pos, size)
	c.refresh()
	return c.preview, nil
}

func (c *Controller) moveTo(pos, size geom.Vec) {
	c.live = geom.RectAt(pos, size)
	if h := c.held.Item.Handle; h != nil {
		h.SetPosition(pos)
	}
}

// Rotate swaps the footprint of the held item around its centre. The entry
// keeps its stored orientation until the drop commits.
func (c *Controller) Rotate(e *grid.Entry) (placement.Preview, error) {
	if c.state != Dragging {
		return placement.Preview{}, ErrNotDragging
	}
	if e != c.held {
		return c.preview, ErrNotHeld
	}
	c.orient(!e.Item.Rotated)
	c.refresh()
	return c.preview, nil
}

func (c *Controller) orient(rotated bool) {
	inst := c.held.Item
	inst.SetOrientation(rotated)
	size := c.grid.Model.FootprintSize(inst.Footprint)
	if h := inst.Handle; h != nil {
		h.SetSize(size)
		h.SetRotation(inst.RotationDegrees())
	}
	c.moveTo(c.live.Center().Sub(size.Mul(0.5)), size)
}

// PointerUp resolves the drag on a primary release. In sticky mode a release
// while idle picks up e instead.
func (c *Controller) PointerUp(ctx context.Context, e *grid.Entry, button Button) (Result, error) {
	if button != ButtonPrimary {
		return Result{}, nil
	}
	if c.state == Idle {
		if c.sticky && e != nil {
			if err := c.begin(e); err != nil {
				return Result{}, err
			}
			return Result{Outcome: PickedUp, Entry: e, From: e.Position}, nil
		}
		return Result{}, ErrNotDragging
	}
	if c.state != Dragging {
		return Result{}, ErrDragging
	}
	return c.resolve(ctx), nil
}

// Cancel reverts the held item, if any.
func (c *Controller) Cancel() Result {
	if c.state != Dragging {
		return Result{}
	}
	c.state = Resolving
	res := c.revert(nil)
	c.finish()
	return res
}

func (c *Controller) resolve(ctx context.Context) Result {
	c.state = Resolving
	defer c.finish()

	c.refresh()
	p := c.preview
	switch p.Outcome {
	case placement.CanPlace:
		return c.place(p.Target)
	case placement.BlockedByContainer:
		held := c.held
		if err := c.recv.HandOff(ctx, p.Container, held); err != nil {
			return c.revert(fmt.Errorf("hand-off to %s: %w", p.Container.Item.ID, err))
		}
		return Result{Outcome: HandedOff, Entry: held, From: c.origin, Container: p.Container}
	default:
		return c.revert(p.Reason)
	}
}

func (c *Controller) place(target grid.Point) Result {
	g := c.grid
	release, err := g.Acquire()
	if err != nil {
		return c.revert(err)
	}
	defer release()
	if err := g.Move(c.held, target); err != nil {
		return c.revert(err)
	}
	if h := c.held.Item.Handle; h != nil {
		h.SetPosition(g.Model.SlotToPosition(target))
	}
	return Result{Outcome: Placed, Entry: c.held, From: c.origin, To: target}
}

func (c *Controller) revert(reason error) Result {
	if c.held.Item.Rotated != c.originRotated {
		c.orient(c.originRotated)
	}
	if h := c.held.Item.Handle; h != nil {
		h.SetPosition(c.grid.Model.SlotToPosition(c.origin))
	}
	return Result{Outcome: Reverted, Entry: c.held, From: c.origin, To: c.origin, Err: reason}
}

func (c *Controller) finish() {
	if c.grid != nil && c.grid.Telegraph != nil {
		c.grid.Telegraph.SetVisible(false)
	}
	c.state = Idle
	c.held = nil
	c.grid = nil
	c.live = geom.Rect{}
	c.preview = placement.Preview{}
}

// refresh recomputes the preview for the live box and updates the telegraph.
func (c *Controller) refresh() {
	g := c.held.Grid()
	if g != c.grid {
		c.preview = placement.Preview{Outcome: placement.Blocked, Reason: grid.ErrNotStored}
		return
	}
	var accepts placement.AcceptFunc
	if c.recv != nil {
		held := c.held
		accepts = func(target *grid.Entry) bool { return c.recv.Accepts(target, held) }
	}
	c.preview = placement.PreviewDrop(g, c.held, c.live, accepts)
	if t := g.Telegraph; t != nil {
		if c.preview.Visible() {
			t.SetPosition(c.preview.Telegraph.Min)
			t.SetSize(c.preview.Telegraph.Size())
		}
		t.SetVisible(c.preview.Visible())
	}
}
