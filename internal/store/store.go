// Package store persists inventory snapshots between sessions.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
)

// ErrNotFound is returned when an owner has no saved inventory.
var ErrNotFound = errors.New("store: inventory not found")

// Store loads and saves the inventory snapshot of an owner.
type Store interface {
	Load(ctx context.Context, owner string) (inventory.Snapshot, error)
	Save(ctx context.Context, owner string, snap inventory.Snapshot) error
	Delete(ctx context.Context, owner string) error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]inventory.Snapshot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]inventory.Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, owner string) (inventory.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[owner]
	if !ok {
		return inventory.Snapshot{}, ErrNotFound
	}
	return clone(snap), nil
}

func (m *MemoryStore) Save(_ context.Context, owner string, snap inventory.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[owner] = clone(snap)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, owner)
	return nil
}

func clone(snap inventory.Snapshot) inventory.Snapshot {
	out := inventory.Snapshot{Root: cloneRecords(snap.Root)}
	if len(snap.Containers) > 0 {
		out.Containers = make(map[string][]grid.Record, len(snap.Containers))
		for id, recs := range snap.Containers {
			out.Containers[id] = cloneRecords(recs)
		}
	}
	return out
}

func cloneRecords(recs []grid.Record) []grid.Record {
	if recs == nil {
		return nil
	}
	out := make([]grid.Record, len(recs))
	for i, r := range recs {
		if r.Position != nil {
			p := *r.Position
			r.Position = &p
		}
		out[i] = r
	}
	return out
}
