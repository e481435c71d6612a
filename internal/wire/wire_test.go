package wire_test

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordLength = 16

func randAddress(t *testing.T) memory.Address {
	t.Helper()
	var a memory.Address
	_, err := rand.Read(a[:])
	require.NoError(t, err)
	return a
}

func randWord(t *testing.T) memory.Word {
	t.Helper()
	w := make(memory.Word, wordLength)
	_, err := rand.Read(w)
	require.NoError(t, err)
	return w
}

func TestUvarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 40} {
		buf := wire.PutUvarint(nil, v)
		got, err := wire.ReadUvarint(bufio.NewReader(bytes.NewReader(buf)))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestOptionRoundTrip_Some(t *testing.T) {
	w := randWord(t)
	buf := wire.PutOption(nil, w)
	got, err := wire.ReadOption(bufio.NewReader(bytes.NewReader(buf)), wordLength)
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestOptionRoundTrip_None(t *testing.T) {
	buf := wire.PutOption(nil, nil)
	got, err := wire.ReadOption(bufio.NewReader(bytes.NewReader(buf)), wordLength)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBatchReadRequestRoundTrip(t *testing.T) {
	addrs := []memory.Address{randAddress(t), randAddress(t), randAddress(t)}
	body := wire.EncodeBatchReadRequest(addrs)
	got, err := wire.DecodeBatchReadRequest(body)
	require.NoError(t, err)
	assert.Equal(t, addrs, got)
}

func TestBatchReadRequestRejectsMisalignedBody(t *testing.T) {
	_, err := wire.DecodeBatchReadRequest(make([]byte, memory.AddressLength+1))
	assert.Error(t, err)
}

func TestBatchReadResponseRoundTrip(t *testing.T) {
	words := []memory.Word{randWord(t), nil, randWord(t)}
	body := wire.EncodeBatchReadResponse(words)
	got, err := wire.DecodeBatchReadResponse(body, len(words), wordLength)
	require.NoError(t, err)
	assert.Equal(t, words, got)
}

func TestGuardedWriteRequestRoundTrip(t *testing.T) {
	guardAddr := randAddress(t)
	guardWord := randWord(t)
	bindings := []memory.Binding{
		{Address: randAddress(t), Word: randWord(t)},
		{Address: randAddress(t), Word: randWord(t)},
	}

	body := wire.EncodeGuardedWriteRequest(guardAddr, guardWord, bindings)
	gotGuardAddr, gotGuardWord, gotBindings, err := wire.DecodeGuardedWriteRequest(body, wordLength)
	require.NoError(t, err)
	assert.Equal(t, guardAddr, gotGuardAddr)
	assert.Equal(t, guardWord, gotGuardWord)
	assert.Equal(t, bindings, gotBindings)
}

func TestGuardedWriteRequestRoundTrip_NoneGuard(t *testing.T) {
	guardAddr := randAddress(t)
	bindings := []memory.Binding{{Address: randAddress(t), Word: randWord(t)}}

	body := wire.EncodeGuardedWriteRequest(guardAddr, nil, bindings)
	gotGuardAddr, gotGuardWord, gotBindings, err := wire.DecodeGuardedWriteRequest(body, wordLength)
	require.NoError(t, err)
	assert.Equal(t, guardAddr, gotGuardAddr)
	assert.Nil(t, gotGuardWord)
	assert.Equal(t, bindings, gotBindings)
}

func TestGuardedWriteResponseRoundTrip(t *testing.T) {
	w := randWord(t)
	body := wire.EncodeGuardedWriteResponse(w)
	got, err := wire.DecodeGuardedWriteResponse(body, wordLength)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	body = wire.EncodeGuardedWriteResponse(nil)
	got, err = wire.DecodeGuardedWriteResponse(body, wordLength)
	require.NoError(t, err)
	assert.Nil(t, got)
}
