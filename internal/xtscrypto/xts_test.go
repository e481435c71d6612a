package xtscrypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/edirooss/findex-server/internal/xtscrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randBytes(t, 64) // AES-256-XTS
	c, err := xtscrypto.NewCipher(key)
	require.NoError(t, err)

	tweak := randBytes(t, xtscrypto.BlockSize)
	plaintext := randBytes(t, 129) // deployment's typical WORD_LENGTH

	ciphertext := make([]byte, len(plaintext))
	require.NoError(t, c.Encrypt(ciphertext, plaintext, tweak))
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted := make([]byte, len(ciphertext))
	require.NoError(t, c.Decrypt(decrypted, ciphertext, tweak))
	assert.Equal(t, plaintext, decrypted)
}

func TestDifferentTweaksProduceDifferentCiphertext(t *testing.T) {
	key := randBytes(t, 32) // AES-128-XTS
	c, err := xtscrypto.NewCipher(key)
	require.NoError(t, err)

	plaintext := randBytes(t, 64)
	tweakA := make([]byte, xtscrypto.BlockSize)
	tweakB := make([]byte, xtscrypto.BlockSize)
	tweakB[0] = 1

	outA := make([]byte, len(plaintext))
	outB := make([]byte, len(plaintext))
	require.NoError(t, c.Encrypt(outA, plaintext, tweakA))
	require.NoError(t, c.Encrypt(outB, plaintext, tweakB))

	assert.False(t, bytes.Equal(outA, outB))
}

func TestRejectsBadKeySize(t *testing.T) {
	_, err := xtscrypto.NewCipher(randBytes(t, 33))
	assert.ErrorIs(t, err, xtscrypto.ErrInvalidKeySize)
}

func TestRejectsBadTweakSize(t *testing.T) {
	c, err := xtscrypto.NewCipher(randBytes(t, 32))
	require.NoError(t, err)

	plaintext := randBytes(t, 32)
	out := make([]byte, len(plaintext))
	err = c.Encrypt(out, plaintext, randBytes(t, 15))
	assert.ErrorIs(t, err, xtscrypto.ErrInvalidTweakSize)
}

func TestRejectsShortInput(t *testing.T) {
	c, err := xtscrypto.NewCipher(randBytes(t, 32))
	require.NoError(t, err)

	out := make([]byte, 4)
	err = c.Encrypt(out, make([]byte, 4), randBytes(t, xtscrypto.BlockSize))
	assert.ErrorIs(t, err, xtscrypto.ErrShortInput)
}

func TestCiphertextStealingNonBlockMultiple(t *testing.T) {
	c, err := xtscrypto.NewCipher(randBytes(t, 32))
	require.NoError(t, err)

	tweak := randBytes(t, xtscrypto.BlockSize)
	plaintext := randBytes(t, 40) // not a multiple of BlockSize

	ciphertext := make([]byte, len(plaintext))
	require.NoError(t, c.Encrypt(ciphertext, plaintext, tweak))

	decrypted := make([]byte, len(ciphertext))
	require.NoError(t, c.Decrypt(decrypted, ciphertext, tweak))
	assert.Equal(t, plaintext, decrypted)
}
