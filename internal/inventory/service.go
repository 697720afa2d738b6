// Package inventory wires the grid, placement, container and drag layers
// into the service a presentation host talks to.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gravitas-games/gridinv/internal/container"
	"github.com/gravitas-games/gridinv/internal/drag"
	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
	"github.com/gravitas-games/gridinv/internal/placement"
)

// RootKey is the grid key of the top-level inventory.
const RootKey = "root"

var (
	// ErrUnknownItem is returned for definitions missing from the catalog.
	ErrUnknownItem = errors.New("inventory: unknown item definition")
	// ErrNotFound is returned for instance IDs not shown in any grid.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrContainerNotEmpty is returned when selling a container that holds items.
	ErrContainerNotEmpty = errors.New("inventory: container is not empty")
)

// Config holds the per-inventory settings.
type Config struct {
	Owner               string
	Columns             int
	Rows                int
	SlotSize            geom.Vec
	RootPolicy          placement.Policy
	ContainerPolicy     placement.Policy
	RestorePositions    bool
	StickyPickup        bool
	HandoffRequiresOpen bool
}

// Service is the inventory of one owner. It is not safe for concurrent use;
// hosts drive it from a single goroutine.
type Service struct {
	cfg       Config
	catalog   *item.Catalog
	presenter layout.Presenter
	engine    *placement.Engine
	registry  *container.Registry
	drag      *drag.Controller
	bus       EventBus
	root      *grid.Grid
}

// NewService creates the inventory and shows its root grid through p. A nil
// presenter runs the inventory headless; a nil bus drops events.
func NewService(cfg Config, catalog *item.Catalog, p layout.Presenter, bus EventBus) *Service {
	if bus == nil {
		bus = NewNullEventBus()
	}
	s := &Service{cfg: cfg, catalog: catalog, presenter: p, bus: bus}
	s.engine = placement.NewEngine(p, catalog, placement.WithRestorePositions(cfg.RestorePositions))
	s.registry = container.NewRegistry(s.engine, container.Config{
		SlotSize:    cfg.SlotSize,
		Policy:      cfg.ContainerPolicy,
		RequireOpen: cfg.HandoffRequiresOpen,
	})
	s.registry.OnOpen = func(c *grid.Container) {
		s.publish(Event{Type: EventContainerOpened, InstanceID: c.Item.ID, DefinitionID: string(c.Item.Def.ID), Container: c.Grid.Key})
	}
	s.registry.OnClose = func(inst *grid.Instance) {
		s.publish(Event{Type: EventContainerClosed, InstanceID: inst.ID, DefinitionID: string(inst.Def.ID), Container: inst.ID})
	}
	s.registry.OnRejected = func(key string, rejected []grid.Record) {
		s.publish(Event{Type: EventLoadRejected, Grid: key, Rejected: rejected})
	}
	s.drag = drag.NewController(s, cfg.StickyPickup)

	s.root = grid.New(RootKey, grid.NewModel(cfg.Columns, cfg.Rows, cfg.SlotSize))
	if p != nil {
		s.root.Handle = p.NewGrid(layout.GridSpec{
			Key:      RootKey,
			Title:    "Inventory",
			Columns:  cfg.Columns,
			Rows:     cfg.Rows,
			SlotSize: cfg.SlotSize,
		})
		s.root.Telegraph = p.NewTelegraph(s.root.Handle)
		s.root.Telegraph.SetVisible(false)
	}
	return s
}

// Owner returns the key the inventory is stored and published under.
func (s *Service) Owner() string { return s.cfg.Owner }

// Root returns the top-level grid.
func (s *Service) Root() *grid.Grid { return s.root }

// Catalog returns the item definitions the inventory resolves against.
func (s *Service) Catalog() *item.Catalog { return s.catalog }

// Registry returns the container views of the inventory.
func (s *Service) Registry() *container.Registry { return s.registry }

// Drag returns the drag state machine.
func (s *Service) Drag() *drag.Controller { return s.drag }

// Engine returns the placement engine shared by every grid.
func (s *Service) Engine() *placement.Engine { return s.engine }

// Grids returns the root grid followed by every open container grid.
func (s *Service) Grids() []*grid.Grid {
	out := []*grid.Grid{s.root}
	for _, c := range s.registry.Containers() {
		out = append(out, c.Grid)
	}
	return out
}

// Find returns the entry of the given instance in any shown grid.
func (s *Service) Find(instanceID string) (*grid.Entry, bool) {
	for _, g := range s.Grids() {
		if e, ok := g.Find(instanceID); ok {
			return e, true
		}
	}
	return nil, false
}

// AddItem places a new instance of def into the root grid.
func (s *Service) AddItem(ctx context.Context, def *item.Definition) (*grid.Entry, error) {
	if def == nil {
		return nil, ErrUnknownItem
	}
	e, err := s.engine.Place(ctx, s.root, grid.NewInstance(def))
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", def.ID, err)
	}
	s.publishEntry(EventItemAdded, e)
	return e, nil
}

// AddItemByID looks id up in the catalog and adds it.
func (s *Service) AddItemByID(ctx context.Context, id item.ID) (*grid.Entry, error) {
	def, ok := s.catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("add %s: %w", id, ErrUnknownItem)
	}
	return s.AddItem(ctx, def)
}

// RemoveItem takes e out of the inventory for good, together with the
// contents of a container item.
func (s *Service) RemoveItem(e *grid.Entry) error {
	if s.drag.Held() == e {
		s.cancelDrag()
	}
	if err := s.discard(e); err != nil {
		return err
	}
	if e.Item.IsContainer() {
		s.registry.Forget(e.Item.ID)
	}
	s.publishEntry(EventItemRemoved, e)
	return nil
}

// discard removes e from its grid, closing its view first if it is an open
// container. Persisted contents stay untouched.
func (s *Service) discard(e *grid.Entry) error {
	g := e.Grid()
	if g == nil {
		return grid.ErrNotStored
	}
	s.cancelDragWithin(e.Item)
	if err := s.registry.Close(e.Item); err != nil {
		return err
	}
	release, err := g.Acquire()
	if err != nil {
		return err
	}
	defer release()
	if err := g.Remove(e); err != nil {
		return err
	}
	s.engine.Detach(e.Item)
	return nil
}

// LoadInventory restores records into the root grid with the root policy.
func (s *Service) LoadInventory(ctx context.Context, records []grid.Record) (placement.LoadResult, error) {
	res, err := s.engine.Load(ctx, s.root, records, s.cfg.RootPolicy)
	if len(res.Rejected) > 0 {
		s.publish(Event{Type: EventLoadRejected, Grid: RootKey, Rejected: res.Rejected})
	}
	if err != nil {
		return res, fmt.Errorf("load inventory: %w", err)
	}
	return res, nil
}

// ShowPlacementPreview answers where e would land if dropped now.
func (s *Service) ShowPlacementPreview(e *grid.Entry) placement.Preview {
	if s.drag.State() == drag.Dragging && s.drag.Held() == e {
		return s.drag.Preview()
	}
	g := e.Grid()
	if g == nil {
		return placement.Preview{Outcome: placement.Blocked, Reason: grid.ErrNotStored}
	}
	return placement.PreviewDrop(g, e, e.Box(), func(target *grid.Entry) bool {
		return s.Accepts(target, e)
	})
}

// OpenContainer shows the nested grid of e.
func (s *Service) OpenContainer(ctx context.Context, e *grid.Entry) (*grid.Container, error) {
	return s.registry.Open(ctx, e.Item)
}

// CloseContainer hides the nested grid of e. An item held inside it is
// dropped back where it was picked up first.
func (s *Service) CloseContainer(e *grid.Entry) error {
	s.cancelDragWithin(e.Item)
	return s.registry.Close(e.Item)
}

// ToggleContainer flips the nested grid of e and reports whether it is open.
func (s *Service) ToggleContainer(ctx context.Context, e *grid.Entry) (bool, error) {
	if s.registry.IsOpen(e.Item) {
		s.cancelDragWithin(e.Item)
	}
	return s.registry.Toggle(ctx, e.Item)
}

// cancelDragWithin reverts the held item when it rests in the nested grid of
// inst or in a container open somewhere inside it.
func (s *Service) cancelDragWithin(inst *grid.Instance) {
	if s.drag.State() != drag.Dragging {
		return
	}
	g := s.drag.Held().Grid()
	for g != nil && g.Owner != nil {
		if g.Owner == inst {
			s.cancelDrag()
			return
		}
		parent, ok := s.Find(g.Owner.ID)
		if !ok {
			return
		}
		g = parent.Grid()
	}
}

func (s *Service) cancelDrag() {
	if res := s.drag.Cancel(); res.Outcome == drag.Reverted {
		s.publishEntry(EventItemReverted, res.Entry)
	}
}

// Accepts implements drag.Receiver.
func (s *Service) Accepts(target, dragged *grid.Entry) bool {
	return s.registry.Accepts(target, dragged)
}

// HandOff implements drag.Receiver: dragged moves into target and only then
// leaves its own grid.
func (s *Service) HandOff(ctx context.Context, target, dragged *grid.Entry) error {
	if err := s.registry.Offer(ctx, target.Item, dragged.Item); err != nil {
		return err
	}
	if err := s.discard(dragged); err != nil {
		log.Printf("Hand-off of %s left the source behind: %v", dragged.Item.ID, err)
		return err
	}
	return nil
}

// PointerDown starts a drag on a primary press. A secondary press toggles
// the container under the pointer.
func (s *Service) PointerDown(ctx context.Context, instanceID string, button drag.Button) error {
	e, ok := s.Find(instanceID)
	if !ok {
		return fmt.Errorf("pointer down on %s: %w", instanceID, ErrNotFound)
	}
	if button == drag.ButtonSecondary {
		if !e.Item.IsContainer() || s.drag.State() != drag.Idle {
			return nil
		}
		_, err := s.ToggleContainer(ctx, e)
		return err
	}
	return s.drag.PointerDown(e, button)
}

// PointerMove follows the pointer with the held item.
func (s *Service) PointerMove(pos geom.Vec) (placement.Preview, error) {
	return s.drag.PointerMove(pos)
}

// PointerUp resolves the drag. instanceID may be empty unless sticky pickup
// is enabled.
func (s *Service) PointerUp(ctx context.Context, instanceID string, button drag.Button) (drag.Result, error) {
	var e *grid.Entry
	if instanceID != "" {
		e, _ = s.Find(instanceID)
	}
	res, err := s.drag.PointerUp(ctx, e, button)
	if err != nil {
		return res, err
	}
	switch res.Outcome {
	case drag.Placed:
		s.publishEntry(EventItemPlaced, res.Entry)
	case drag.HandedOff:
		ev := s.entryEvent(EventItemHandedOff, res.Entry)
		ev.Container = res.Container.Item.ID
		s.publish(ev)
	case drag.Reverted:
		s.publishEntry(EventItemReverted, res.Entry)
	}
	return res, nil
}

// RotateRequested rotates the held item when instanceID names it.
func (s *Service) RotateRequested(instanceID string) (placement.Preview, error) {
	held := s.drag.Held()
	if held == nil {
		return placement.Preview{}, drag.ErrNotDragging
	}
	if held.Item.ID != instanceID {
		return s.drag.Preview(), drag.ErrNotHeld
	}
	p, err := s.drag.Rotate(held)
	if err != nil {
		return p, err
	}
	s.publishEntry(EventItemRotated, held)
	return p, nil
}

// Handle dispatches one input event.
func (s *Service) Handle(ctx context.Context, ev drag.Event) error {
	switch ev.Kind {
	case drag.EventPointerDown:
		return s.PointerDown(ctx, ev.InstanceID, ev.Button)
	case drag.EventPointerMove:
		_, err := s.PointerMove(ev.Pos)
		return err
	case drag.EventPointerUp:
		_, err := s.PointerUp(ctx, ev.InstanceID, ev.Button)
		return err
	case drag.EventRotate:
		_, err := s.RotateRequested(ev.InstanceID)
		return err
	default:
		return fmt.Errorf("unknown input event %d", ev.Kind)
	}
}

// Bind feeds events from src into the service until the subscription is
// released. Pointer noise outside a drag is ignored.
func (s *Service) Bind(ctx context.Context, src drag.Source) *drag.Subscription {
	return drag.Subscribe(src, func(ev drag.Event) {
		err := s.Handle(ctx, ev)
		if err != nil && !errors.Is(err, drag.ErrNotDragging) && !errors.Is(err, drag.ErrNotHeld) {
			log.Printf("Input event %d on %q failed: %v", ev.Kind, ev.InstanceID, err)
		}
	})
}

// Snapshot is the persisted state of an inventory.
type Snapshot struct {
	Root []grid.Record `json:"root"`
	// Containers maps a container instance ID to its contents.
	Containers map[string][]grid.Record `json:"containers,omitempty"`
}

// Snapshot captures the root grid and every container's contents.
func (s *Service) Snapshot() Snapshot {
	return Snapshot{Root: s.root.Records(), Containers: s.registry.Snapshot()}
}

// Restore seeds container contents and loads the root records.
func (s *Service) Restore(ctx context.Context, snap Snapshot) (placement.LoadResult, error) {
	for id, recs := range snap.Containers {
		s.registry.SetRecords(id, recs)
	}
	return s.LoadInventory(ctx, snap.Root)
}

// Details is what the item detail panel shows.
type Details struct {
	InstanceID  string          `json:"instanceId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SellPrice   int             `json:"sellPrice"`
	Icon        string          `json:"icon,omitempty"`
	Size        item.Dimensions `json:"size"`
	Rotated     bool            `json:"rotated,omitempty"`
	Container   bool            `json:"container,omitempty"`
	Contents    int             `json:"contents,omitempty"`
}

// Details describes the item with the given instance ID.
func (s *Service) Details(instanceID string) (Details, error) {
	e, ok := s.Find(instanceID)
	if !ok {
		return Details{}, fmt.Errorf("details of %s: %w", instanceID, ErrNotFound)
	}
	d := Details{
		InstanceID:  e.Item.ID,
		Name:        e.Def.Name,
		Description: e.Def.Description,
		SellPrice:   e.Def.SellPrice,
		Icon:        e.Def.Icon,
		Size:        e.Footprint(),
		Rotated:     e.Rotated(),
		Container:   e.Item.IsContainer(),
	}
	if d.Container {
		d.Contents = len(s.registry.Records(e.Item.ID))
	}
	return d, nil
}

// SellItem removes e and returns its sell price. Containers must be emptied
// first.
func (s *Service) SellItem(e *grid.Entry) (int, error) {
	if e.Item.IsContainer() && len(s.registry.Records(e.Item.ID)) > 0 {
		return 0, fmt.Errorf("sell %s: %w", e.Def.ID, ErrContainerNotEmpty)
	}
	if err := s.RemoveItem(e); err != nil {
		return 0, fmt.Errorf("sell %s: %w", e.Def.ID, err)
	}
	ev := s.entryEvent(EventItemSold, e)
	ev.Data = map[string]any{"price": e.Def.SellPrice}
	s.publish(ev)
	return e.Def.SellPrice, nil
}

func (s *Service) entryEvent(t EventType, e *grid.Entry) Event {
	ev := Event{Type: t, InstanceID: e.Item.ID, DefinitionID: string(e.Def.ID)}
	if g := e.Grid(); g != nil {
		pos := e.Position
		ev.Grid = g.Key
		ev.Position = &pos
	}
	return ev
}

func (s *Service) publishEntry(t EventType, e *grid.Entry) {
	s.publish(s.entryEvent(t, e))
}

func (s *Service) publish(ev Event) {
	ev.Owner = s.cfg.Owner
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.bus.Publish(ev)
}
