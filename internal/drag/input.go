package drag

import (
	"sort"
	"sync"

	"github.com/gravitas-games/gridinv/internal/geom"
)

// EventKind identifies a pointer event.
type EventKind int

const (
	EventPointerDown EventKind = iota
	EventPointerMove
	EventPointerUp
	EventRotate
)

// Event is one input event from the presentation layer. InstanceID names the
// item under the pointer, if any.
type Event struct {
	Kind       EventKind
	InstanceID string
	Button     Button
	Pos        geom.Vec
}

// Handler consumes input events.
type Handler func(Event)

// Source delivers input events to subscribers. Subscribe returns the
// function that detaches h again.
type Source interface {
	Subscribe(h Handler) (cancel func())
}

// Subscription is a scoped registration with a Source. Release detaches the
// handler and may be called any number of times, so it is safe to defer.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Subscribe registers h with src.
func Subscribe(src Source, h Handler) *Subscription {
	return &Subscription{cancel: src.Subscribe(h)}
}

// Release detaches the handler.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Feed is a Source hosts push events into.
type Feed struct {
	mu       sync.Mutex
	next     int
	handlers map[int]Handler
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{handlers: make(map[int]Handler)}
}

func (f *Feed) Subscribe(h Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.handlers[id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// Publish delivers ev to every subscriber in subscription order.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	ids := make([]int, 0, len(f.handlers))
	for id := range f.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, f.handlers[id])
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscribers returns the number of attached handlers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}
