package dataset

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tableTagDataset namespaces dataset-entry keys within the same Redis
// keyspace as the memory and permission tables (spec.md §4.1 key layout).
const tableTagDataset = "dataset"

func entryKey(indexID, entryID uuid.UUID) string {
	return fmt.Sprintf("%s\x00%s\x00%s", tableTagDataset, indexID[:], entryID[:])
}

// RedisStore is the Redis-backed dataset Store, following ChannelRepository's
// Set/MGet/Del shape (internal/redis/channel_repo.go) rather than the
// sequence-allocating DataStore, since entries are keyed by random UUIDs
// generated here instead of a monotonic counter.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, log: log.Named("dataset_redis")}
}

func (s *RedisStore) AddEntries(ctx context.Context, indexID uuid.UUID, entries [][]byte) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(entries))
	pipe := s.client.TxPipeline()
	for i, e := range entries {
		id := uuid.New()
		ids[i] = id
		pipe.Set(ctx, entryKey(indexID, id), e, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("dataset: add_entries: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) GetEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) ([][]byte, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(entryIDs))
	for i, id := range entryIDs {
		keys[i] = entryKey(indexID, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("dataset: get_entries: %w", err)
	}
	out := make([][]byte, len(entryIDs))
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("dataset: get_entries: entry %s: %w", entryIDs[i], ErrNotFound)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("dataset: get_entries: unexpected value type for entry %s", entryIDs[i])
		}
		out[i] = []byte(s)
	}
	return out, nil
}

func (s *RedisStore) DeleteEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) error {
	if len(entryIDs) == 0 {
		return nil
	}
	keys := make([]string, len(entryIDs))
	for i, id := range entryIDs {
		keys[i] = entryKey(indexID, id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("dataset: delete_entries: %w", err)
	}
	return nil
}
