package backend

import (
	"context"
	"fmt"

	"github.com/edirooss/findex-server/internal/memory"
	"github.com/redis/go-redis/v9"
)

// tableTagMemory separates the Findex memory table from the permission and
// dataset tables under the same Redis keyspace, per the key layout
// `index_id_bytes || 0x00 || table_tag || address_bytes` (spec.md §4.1).
const tableTagMemory = "mem"

func memoryKey(indexID [16]byte, addr memory.Address) string {
	return fmt.Sprintf("%s\x00%s%s", indexID[:], tableTagMemory, addr[:])
}

// guardedWriteScript implements the same compare-and-set the SQLite variant
// expresses as a `BEGIN IMMEDIATE` transaction, but as a single Lua script:
// Redis executes scripts atomically, so no separate locking is needed.
// KEYS = [guard_key, binding_key_0, ...]; ARGV = [guard_word_or_empty,
// guard_has_word ("1"/"0"), binding_word_0, ...].
var guardedWriteScript = redis.NewScript(`
local guard_key = KEYS[1]
local guard_word = ARGV[1]
local guard_has_word = ARGV[2] == "1"

local current = redis.call("GET", guard_key)

local matches
if current == false then
	matches = not guard_has_word
else
	matches = guard_has_word and current == guard_word
end

if matches then
	for i = 2, #KEYS do
		redis.call("SET", KEYS[i], ARGV[i + 1])
	end
end

if current == false then
	return false
end
return current
`)

// RedisMemory is the Redis-backed memory.IndexedADT.
type RedisMemory struct {
	client *redis.Client
}

// NewRedisMemory wraps an existing go-redis client.
func NewRedisMemory(client *redis.Client) *RedisMemory {
	return &RedisMemory{client: client}
}

// BatchRead implements memory.IndexedADT via a single MGET.
func (m *RedisMemory) BatchRead(ctx context.Context, indexID [16]byte, addresses []memory.Address) ([]memory.Word, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	keys := make([]string, len(addresses))
	for i, a := range addresses {
		keys[i] = memoryKey(indexID, a)
	}

	vals, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("backend: batch_read: %w", err)
	}

	out := make([]memory.Word, len(addresses))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("backend: batch_read: unexpected value type for key %q", keys[i])
		}
		out[i] = memory.Word(s)
	}
	return out, nil
}

// GuardedWrite implements memory.IndexedADT via a single Lua script
// evaluated atomically by Redis: GET-compare-then-SET, generalized to many
// keys in one round trip.
func (m *RedisMemory) GuardedWrite(ctx context.Context, indexID [16]byte, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	keys := make([]string, 0, len(bindings)+1)
	keys = append(keys, memoryKey(indexID, guardAddr))
	for _, b := range bindings {
		keys = append(keys, memoryKey(indexID, b.Address))
	}

	argv := make([]any, 0, len(bindings)+2)
	argv = append(argv, string(guardWord))
	if guardWord != nil {
		argv = append(argv, "1")
	} else {
		argv = append(argv, "0")
	}
	for _, b := range bindings {
		argv = append(argv, string(b.Word))
	}

	res, err := guardedWriteScript.Run(ctx, m.client, keys, argv...).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("backend: guarded_write: %w", err)
	}

	if res == nil || err == redis.Nil {
		return nil, nil
	}
	s, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("backend: guarded_write: unexpected script result type %T", res)
	}
	return memory.Word(s), nil
}
