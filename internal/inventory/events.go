package inventory

import (
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/gridinv/internal/grid"
)

// EventType represents the type of inventory event.
type EventType int

const (
	// EventItemAdded is emitted when an item enters the root grid.
	EventItemAdded EventType = iota
	// EventItemRemoved is emitted when an item leaves the inventory.
	EventItemRemoved
	// EventItemPlaced is emitted when a drag commits a new anchor.
	EventItemPlaced
	// EventItemReverted is emitted when a drag snaps back to its origin.
	EventItemReverted
	// EventItemHandedOff is emitted when a dragged item moves into a container.
	EventItemHandedOff
	// EventItemRotated is emitted when the held item is rotated.
	EventItemRotated
	EventItemSold
	EventContainerOpened
	EventContainerClosed
	// EventLoadRejected is emitted when a load could not place some records.
	EventLoadRejected
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventItemAdded:
		return "ItemAdded"
	case EventItemRemoved:
		return "ItemRemoved"
	case EventItemPlaced:
		return "ItemPlaced"
	case EventItemReverted:
		return "ItemReverted"
	case EventItemHandedOff:
		return "ItemHandedOff"
	case EventItemRotated:
		return "ItemRotated"
	case EventItemSold:
		return "ItemSold"
	case EventContainerOpened:
		return "ContainerOpened"
	case EventContainerClosed:
		return "ContainerClosed"
	case EventLoadRejected:
		return "LoadRejected"
	default:
		return "Unknown"
	}
}

// MarshalText lets events travel as JSON with readable type names.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event represents an inventory event.
type Event struct {
	Type         EventType      `json:"type"`
	Owner        string         `json:"owner"`
	InstanceID   string         `json:"instanceId,omitempty"`
	DefinitionID string         `json:"definitionId,omitempty"`
	Grid         string         `json:"grid,omitempty"`
	Position     *grid.Point    `json:"position,omitempty"`
	Container    string         `json:"container,omitempty"`
	Rejected     []grid.Record  `json:"rejected,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Data         map[string]any `json:"data,omitempty"`
}

// EventBus manages event subscriptions and delivery.
type EventBus interface {
	// Subscribe registers a handler for events of a specific owner.
	Subscribe(owner string, handler func(Event))

	// Unsubscribe removes the handler for an owner.
	Unsubscribe(owner string)

	// Publish sends an event to the owner's handler.
	Publish(event Event)
}

type subscriber struct {
	events chan Event
	done   chan struct{}
}

// SimpleEventBus is a basic in-memory event bus implementation. Each
// subscriber has its own goroutine and buffer, so a slow handler never
// blocks the inventory and events of one owner arrive in order.
type SimpleEventBus struct {
	mu         sync.RWMutex
	handlers   map[string]*subscriber
	bufferSize int
}

// NewSimpleEventBus creates a new event bus with default buffer size.
func NewSimpleEventBus() *SimpleEventBus {
	return NewSimpleEventBusWithBuffer(100)
}

// NewSimpleEventBusWithBuffer creates a new event bus with specified buffer size.
func NewSimpleEventBusWithBuffer(bufferSize int) *SimpleEventBus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &SimpleEventBus{
		handlers:   make(map[string]*subscriber),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a handler for events of a specific owner, replacing
// any previous handler.
func (bus *SimpleEventBus) Subscribe(owner string, handler func(Event)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if old, ok := bus.handlers[owner]; ok {
		close(old.events)
	}
	sub := &subscriber{events: make(chan Event, bus.bufferSize), done: make(chan struct{})}
	bus.handlers[owner] = sub
	go func() {
		defer close(sub.done)
		for ev := range sub.events {
			handler(ev)
		}
	}()
}

// Unsubscribe removes the handler for an owner. Events already queued are
// still delivered.
func (bus *SimpleEventBus) Unsubscribe(owner string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if sub, ok := bus.handlers[owner]; ok {
		close(sub.events)
		delete(bus.handlers, owner)
	}
}

// Publish queues an event for the owner's handler. Events for owners with no
// handler are dropped, as are events that overflow a full buffer.
func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	sub, exists := bus.handlers[event.Owner]
	if !exists {
		return
	}
	select {
	case sub.events <- event:
	default:
		log.Printf("Event buffer full for %s, dropping %s", event.Owner, event.Type)
	}
}

// NullEventBus is an event bus that does nothing (for testing or when events not needed).
type NullEventBus struct{}

// NewNullEventBus creates a new null event bus.
func NewNullEventBus() *NullEventBus {
	return &NullEventBus{}
}

// Subscribe does nothing.
func (bus *NullEventBus) Subscribe(owner string, handler func(Event)) {}

// Unsubscribe does nothing.
func (bus *NullEventBus) Unsubscribe(owner string) {}

// Publish does nothing.
func (bus *NullEventBus) Publish(event Event) {}
