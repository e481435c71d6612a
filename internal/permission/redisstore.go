package permission

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tableTagPermission separates the permission namespace from the Findex
// memory table and the dataset table under the same Redis keyspace: each
// user's grants live in one hash at key `perm || 0x00 || user_id`, with one
// field per index_id.
const tableTagPermission = "perm"

// RedisStore is the Redis-backed Permissions Store. Rows are stored as a
// single hash per user (field = index_id string, value = one permission
// byte) so that List(user) is a single HGETALL.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisStore wraps an existing go-redis client, following the teacher's
// constructor-injection convention (redis.NewClient(addr, db, log) style).
func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, log: log.Named("permission.redis")}
}

func userKey(user string) string {
	return fmt.Sprintf("%s\x00%s", tableTagPermission, user)
}

func (s *RedisStore) CreateIndex(ctx context.Context, user string) (uuid.UUID, error) {
	indexID := uuid.New()
	if err := s.client.HSet(ctx, userKey(user), indexID.String(), int(Admin)).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("permission: create index: %w", err)
	}
	s.log.Info("index created", zap.String("user", user), zap.String("index_id", indexID.String()))
	return indexID, nil
}

func (s *RedisStore) Get(ctx context.Context, user string, indexID uuid.UUID) (Permission, error) {
	v, err := s.client.HGet(ctx, userKey(user), indexID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("permission: get: %w", err)
	}
	return decodePermission(v)
}

func (s *RedisStore) List(ctx context.Context, user string) (map[uuid.UUID]Permission, error) {
	fields, err := s.client.HGetAll(ctx, userKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("permission: list: %w", err)
	}
	out := make(map[uuid.UUID]Permission, len(fields))
	for idStr, v := range fields {
		id, err := uuid.Parse(idStr)
		if err != nil {
			s.log.Warn("skipping malformed index_id field", zap.String("user", user), zap.String("field", idStr))
			continue
		}
		perm, err := decodePermission(v)
		if err != nil {
			s.log.Warn("skipping malformed permission value", zap.String("user", user), zap.String("index_id", idStr))
			continue
		}
		out[id] = perm
	}
	return out, nil
}

func (s *RedisStore) Set(ctx context.Context, user string, perm Permission, indexID uuid.UUID) error {
	if err := s.client.HSet(ctx, userKey(user), indexID.String(), int(perm)).Err(); err != nil {
		return fmt.Errorf("permission: set: %w", err)
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, user string, indexID uuid.UUID) error {
	if err := s.client.HDel(ctx, userKey(user), indexID.String()).Err(); err != nil {
		return fmt.Errorf("permission: revoke: %w", err)
	}
	return nil
}

func decodePermission(v string) (Permission, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < int(Read) || n > int(Admin) {
		return 0, fmt.Errorf("permission: malformed stored value %q", v)
	}
	return Permission(n), nil
}
