package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
)

const rootField = "root"

// RedisStore keeps one hash per owner: the root records under "root" and
// the contents of each container under its instance ID.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(owner string) string {
	return s.prefix + "inventory:" + owner
}

func (s *RedisStore) Load(ctx context.Context, owner string) (inventory.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(owner)).Result()
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("failed to load inventory of %s: %w", owner, err)
	}
	if len(fields) == 0 {
		return inventory.Snapshot{}, ErrNotFound
	}

	var snap inventory.Snapshot
	for field, raw := range fields {
		var recs []grid.Record
		if err := json.Unmarshal([]byte(raw), &recs); err != nil {
			return inventory.Snapshot{}, fmt.Errorf("failed to decode %s of %s: %w", field, owner, err)
		}
		if field == rootField {
			snap.Root = recs
			continue
		}
		if snap.Containers == nil {
			snap.Containers = make(map[string][]grid.Record)
		}
		snap.Containers[field] = recs
	}
	return snap, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *RedisStore) Save(ctx context.Context, owner string, snap inventory.Snapshot) error {
	values := make(map[string]any, len(snap.Containers)+1)
	root, err := json.Marshal(nonNil(snap.Root))
	if err != nil {
		return fmt.Errorf("failed to encode inventory of %s: %w", owner, err)
	}
	values[rootField] = root
	for id, recs := range snap.Containers {
		if len(recs) == 0 {
			continue
		}
		data, err := json.Marshal(recs)
		if err != nil {
			return fmt.Errorf("failed to encode container %s of %s: %w", id, owner, err)
		}
		values[id] = data
	}

	key := s.key(owner)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save inventory of %s: %w", owner, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("failed to delete inventory of %s: %w", owner, err)
	}
	return nil
}

func nonNil(recs []grid.Record) []grid.Record {
	if recs == nil {
		return []grid.Record{}
	}
	return recs
}
