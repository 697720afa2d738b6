// Package tui hosts an inventory in the terminal. The inventory runs against
// a headless layout scene whose units are terminal cells; mouse events are
// fed to the inventory as pointer events and the scene is drawn with
// lipgloss after every layout pass.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gravitas-games/gridinv/internal/drag"
	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
)

// Slots are drawn four cells wide and two rows high.
var cellSlot = geom.Vec{4, 2}

const (
	sceneTop = 3
	gridGap  = 4
)

type eventMsg inventory.Event

// Model is the bubbletea model of the terminal inventory.
type Model struct {
	ctx    context.Context
	svc    *inventory.Service
	scene  *layout.Scene
	feed   *drag.Feed
	sub    *drag.Subscription
	bus    *inventory.SimpleEventBus
	events chan inventory.Event
	keys   keyMap

	catalogIDs []item.ID
	next       int

	pointer geom.Vec
	width   int
	status  string
	failed  bool
}

// New creates the inventory for cfg.Owner and restores snap into it.
func New(ctx context.Context, cfg inventory.Config, catalog *item.Catalog, snap inventory.Snapshot) (Model, error) {
	cfg.SlotSize = cellSlot
	m := Model{
		ctx:    ctx,
		scene:  layout.NewScene(geom.Vec{1, sceneTop}, gridGap),
		feed:   drag.NewFeed(),
		bus:    inventory.NewSimpleEventBus(),
		events: make(chan inventory.Event, 64),
		keys:   newKeyMap(),
	}
	for _, def := range catalog.Export() {
		m.catalogIDs = append(m.catalogIDs, def.ID)
	}

	events := m.events
	m.bus.Subscribe(cfg.Owner, func(ev inventory.Event) { events <- ev })
	m.svc = inventory.NewService(cfg, catalog, m.scene, m.bus)
	m.sub = m.svc.Bind(ctx, m.feed)

	res, err := m.svc.Restore(ctx, snap)
	if err != nil {
		m.Close()
		return Model{}, fmt.Errorf("failed to restore inventory: %w", err)
	}
	m.status = fmt.Sprintf("Loaded %d items", len(res.Placed))
	if n := len(res.Rejected); n > 0 {
		m.status += fmt.Sprintf(", %d did not fit", n)
	}
	m.frame()
	return m, nil
}

// Service returns the inventory behind the model.
func (m Model) Service() *inventory.Service { return m.svc }

// Close detaches the model from its inventory.
func (m Model) Close() {
	m.sub.Release()
	m.bus.Unsubscribe(m.svc.Owner())
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan inventory.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		m.setStatus(describe(inventory.Event(msg)), false)
		return m, waitForEvent(m.events)

	case tea.MouseMsg:
		m.handleMouse(msg)
		m.frame()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.frame()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	// aim at the middle of the cell
	m.pointer = geom.Vec{float64(msg.X) + 0.5, float64(msg.Y) + 0.5}

	switch msg.Action {
	case tea.MouseActionPress:
		ev := drag.Event{Kind: drag.EventPointerDown, InstanceID: m.hit(), Pos: m.pointer}
		switch msg.Button {
		case tea.MouseButtonLeft:
			ev.Button = drag.ButtonPrimary
		case tea.MouseButtonRight:
			ev.Button = drag.ButtonSecondary
		default:
			return
		}
		if ev.InstanceID != "" {
			m.feed.Publish(ev)
		}
	case tea.MouseActionMotion:
		if m.svc.Drag().State() == drag.Dragging {
			m.feed.Publish(drag.Event{Kind: drag.EventPointerMove, Pos: m.pointer})
		}
	case tea.MouseActionRelease:
		if msg.Button == tea.MouseButtonRight {
			return
		}
		m.feed.Publish(drag.Event{Kind: drag.EventPointerUp, InstanceID: m.hit(), Button: drag.ButtonPrimary, Pos: m.pointer})
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.rotate):
		held := m.svc.Drag().Held()
		if held == nil {
			m.setStatus("Pick an item up to rotate it", true)
			return
		}
		m.feed.Publish(drag.Event{Kind: drag.EventRotate, InstanceID: held.Item.ID})

	case key.Matches(msg, m.keys.add):
		if len(m.catalogIDs) == 0 {
			return
		}
		id := m.catalogIDs[m.next%len(m.catalogIDs)]
		m.next++
		if _, err := m.svc.AddItemByID(m.ctx, id); err != nil {
			m.setStatus(err.Error(), true)
		}

	case key.Matches(msg, m.keys.remove):
		if e := m.hovered(); e != nil {
			if err := m.svc.RemoveItem(e); err != nil {
				m.setStatus(err.Error(), true)
			}
		}

	case key.Matches(msg, m.keys.sell):
		if e := m.hovered(); e != nil {
			if _, err := m.svc.SellItem(e); err != nil {
				m.setStatus(err.Error(), true)
			}
		}

	case key.Matches(msg, m.keys.toggle):
		e := m.hovered()
		if e == nil || !e.Item.IsContainer() {
			m.setStatus("Hover a container to open it", true)
			return
		}
		if _, err := m.svc.ToggleContainer(m.ctx, e); err != nil {
			m.setStatus(err.Error(), true)
		}

	case key.Matches(msg, m.keys.cancel):
		if res := m.svc.Drag().Cancel(); res.Outcome == drag.Reverted {
			m.setStatus("Drag cancelled", false)
		}
	}
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// frame runs the layout pass a renderer performs before drawing.
func (m *Model) frame() {
	if err := m.scene.AwaitSettled(m.ctx); err != nil {
		m.setStatus(err.Error(), true)
	}
}

// hit returns the topmost item under the pointer, ignoring the held item.
func (m Model) hit() string {
	var held string
	if e := m.svc.Drag().Held(); e != nil {
		held = e.Item.ID
	}
	nodes := m.scene.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Kind == layout.KindItem && n.Key != held && n.Box.ContainsPoint(m.pointer) {
			return n.Key
		}
	}
	return ""
}

func (m Model) hovered() *grid.Entry {
	id := m.hit()
	if id == "" {
		return nil
	}
	e, _ := m.svc.Find(id)
	return e
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Inventory"))
	b.WriteString(mutedStyle.Render("  " + m.svc.Owner()))
	b.WriteString("\n\n")
	b.WriteString(m.render())
	b.WriteString("\n\n")

	if m.failed {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteByte('\n')
	if m.svc.Drag().State() == drag.Dragging {
		p := m.svc.Drag().Preview()
		b.WriteString(mutedStyle.Render(fmt.Sprintf("drop: %s at %d,%d", p.Outcome, p.Target.X, p.Target.Y)))
	}
	b.WriteByte('\n')

	var help []string
	for _, k := range m.keys.bindings() {
		help = append(help, k.Help().Key+" "+k.Help().Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return b.String()
}

// render draws the scene below the header rows.
func (m Model) render() string {
	nodes := m.scene.Nodes()
	w, h := m.width, 0
	for _, n := range nodes {
		_, _, x1, y1 := cells(n.Box)
		w = max(w, x1+1)
		h = max(h, y1)
	}
	c := newCanvas(w, h)

	var held string
	if e := m.svc.Drag().Held(); e != nil {
		held = e.Item.ID
	}
	for _, n := range nodes {
		x0, y0, x1, _ := cells(n.Box)
		switch n.Kind {
		case layout.KindGrid:
			c.fill(n.Box, '·', styleSlot)
			c.text(x0, y0-1, truncate(n.Label, x1-x0), styleGridTitle)
		case layout.KindTelegraph:
			c.fill(n.Box, '░', styleTelegraph)
		case layout.KindItem:
			st := styleItem
			if e, ok := m.svc.Find(n.Key); ok && e.Item.IsContainer() {
				st = styleContainer
			}
			if n.Key == held {
				st = styleHeld
			}
			c.fill(n.Box, ' ', st)
			c.text(x0, y0, truncate(n.Label, x1-x0), st)
		}
	}
	// the scene starts below the header, which View prints itself
	lines := strings.Split(c.String(), "\n")
	if len(lines) > sceneTop-1 {
		lines = lines[sceneTop-1:]
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func describe(ev inventory.Event) string {
	switch ev.Type {
	case inventory.EventItemSold:
		return fmt.Sprintf("Sold %s for %v", ev.DefinitionID, ev.Data["price"])
	case inventory.EventItemHandedOff:
		return fmt.Sprintf("Moved %s into %s", ev.DefinitionID, ev.Container)
	case inventory.EventLoadRejected:
		return fmt.Sprintf("%d items did not fit in %s", len(ev.Rejected), ev.Grid)
	case inventory.EventContainerOpened, inventory.EventContainerClosed:
		return fmt.Sprintf("%s: %s", ev.Type, ev.DefinitionID)
	}
	if ev.Position != nil {
		return fmt.Sprintf("%s: %s at %d,%d", ev.Type, ev.DefinitionID, ev.Position.X, ev.Position.Y)
	}
	return fmt.Sprintf("%s: %s", ev.Type, ev.DefinitionID)
}
