package store

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() inventory.Snapshot {
	return inventory.Snapshot{
		Root: []grid.Record{
			{InstanceID: "bag-1", DefinitionID: "backpack", Position: &grid.Point{X: 0, Y: 0}},
			{InstanceID: "sword-1", DefinitionID: "sword", Position: &grid.Point{X: 2, Y: 0}, Rotated: true},
		},
		Containers: map[string][]grid.Record{
			"bag-1": {{InstanceID: "potion-1", DefinitionID: "potion", Position: &grid.Point{X: 1, Y: 1}}},
		},
	}
}

func exerciseStore(t *testing.T, s Store, owner string) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, owner)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sampleSnapshot()
	require.NoError(t, s.Save(ctx, owner, snap))
	got, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	snap.Containers = nil
	require.NoError(t, s.Save(ctx, owner, snap))
	got, err = s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, got.Containers)
	assert.Len(t, got.Root, 2)

	require.NoError(t, s.Delete(ctx, owner))
	_, err = s.Load(ctx, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), "player-1")
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	snap := sampleSnapshot()
	require.NoError(t, s.Save(ctx, "p", snap))
	snap.Root[0].Position.X = 9

	got, err := s.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Root[0].Position.X)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisStore(client, "gridinv-test:"), uuid.NewString())
}
