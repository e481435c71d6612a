package backend_test

import (
	"crypto/rand"
	"testing"

	"github.com/edirooss/findex-server/internal/backend"
	"github.com/edirooss/findex-server/internal/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestMemory(t *testing.T) *backend.SQLiteMemory {
	t.Helper()
	m, err := backend.OpenSQLiteMemory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func randAddress(t *testing.T) memory.Address {
	t.Helper()
	var a memory.Address
	_, err := rand.Read(a[:])
	require.NoError(t, err)
	return a
}

func randWord(t *testing.T, n int) memory.Word {
	t.Helper()
	w := make(memory.Word, n)
	_, err := rand.Read(w)
	require.NoError(t, err)
	return w
}

func TestSQLiteMemory_FirstWriteThenRead(t *testing.T) {
	m := openTestMemory(t)
	ctx := t.Context()
	indexID := uuid.New()

	addr := randAddress(t)
	word := randWord(t, 32)

	prev, err := m.GuardedWrite(ctx, indexID, addr, nil, []memory.Binding{{Address: addr, Word: word}})
	require.NoError(t, err)
	assert.Nil(t, prev)

	got, err := m.BatchRead(ctx, indexID, []memory.Address{addr})
	require.NoError(t, err)
	assert.Equal(t, word, got[0])
}

func TestSQLiteMemory_WrongGuardDoesNotApply(t *testing.T) {
	m := openTestMemory(t)
	ctx := t.Context()
	indexID := uuid.New()

	addr := randAddress(t)
	first := randWord(t, 32)
	second := randWord(t, 32)
	wrong := randWord(t, 32)

	_, err := m.GuardedWrite(ctx, indexID, addr, nil, []memory.Binding{{Address: addr, Word: first}})
	require.NoError(t, err)

	prev, err := m.GuardedWrite(ctx, indexID, addr, wrong, []memory.Binding{{Address: addr, Word: second}})
	require.NoError(t, err)
	assert.Equal(t, first, prev)

	got, err := m.BatchRead(ctx, indexID, []memory.Address{addr})
	require.NoError(t, err)
	assert.Equal(t, first, got[0])
}

func TestSQLiteMemory_DuplicateBindingLastWins(t *testing.T) {
	m := openTestMemory(t)
	ctx := t.Context()
	indexID := uuid.New()

	addr := randAddress(t)
	first := randWord(t, 32)
	second := randWord(t, 32)

	_, err := m.GuardedWrite(ctx, indexID, addr, nil, []memory.Binding{
		{Address: addr, Word: first},
		{Address: addr, Word: second},
	})
	require.NoError(t, err)

	got, err := m.BatchRead(ctx, indexID, []memory.Address{addr})
	require.NoError(t, err)
	assert.Equal(t, second, got[0])
}

func TestSQLiteMemory_CrossIndexIsolation(t *testing.T) {
	m := openTestMemory(t)
	ctx := t.Context()
	indexA := uuid.New()
	indexB := uuid.New()

	addr := randAddress(t)
	word := randWord(t, 32)

	_, err := m.GuardedWrite(ctx, indexA, addr, nil, []memory.Binding{{Address: addr, Word: word}})
	require.NoError(t, err)

	got, err := m.BatchRead(ctx, indexB, []memory.Address{addr})
	require.NoError(t, err)
	assert.Nil(t, got[0], "write under one index must not be visible under another")
}

func TestSQLiteMemory_BatchReadMixedPresence(t *testing.T) {
	m := openTestMemory(t)
	ctx := t.Context()
	indexID := uuid.New()

	present := randAddress(t)
	absent := randAddress(t)
	word := randWord(t, 32)

	_, err := m.GuardedWrite(ctx, indexID, present, nil, []memory.Binding{{Address: present, Word: word}})
	require.NoError(t, err)

	got, err := m.BatchRead(ctx, indexID, []memory.Address{present, absent})
	require.NoError(t, err)
	assert.Equal(t, word, got[0])
	assert.Nil(t, got[1])
}
