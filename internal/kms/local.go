package kms

import (
	"context"
	"crypto/hmac"
	"fmt"
	"hash"
	"io"

	"github.com/edirooss/findex-server/internal/xtscrypto"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// seedInfoHMAC and seedInfoXTS are the HKDF "info" labels separating the two
// derived keys so that one compromised key cannot be confused for the
// other.
const (
	seedInfoHMAC = "findex-server/hmac-key"
	seedInfoXTS  = "findex-server/xts-key"
)

// xtsKeyLen is 64 bytes: AES-256-XTS takes a key twice the width of the
// underlying AES-256 key (one half for data, one half for tweak), per
// xtscrypto.NewCipher.
const xtsKeyLen = 64

// LocalKMS is the seed-resident alternative deployment mode spec.md
// documents alongside a remote KMS: both keys are derived from a single
// 32-byte seed via HKDF-SHA3-256 rather than fetched by key ID, but the
// Client interface — and therefore every caller in internal/encryption — is
// identical either way.
type LocalKMS struct {
	hmacKey [32]byte
	xts     *xtscrypto.Cipher
}

// NewLocalKMS derives K_hmac and K_xts from seed. seed must be exactly 32
// bytes, matching the deployment note in spec.md §4.4.
func NewLocalKMS(seed []byte) (*LocalKMS, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("kms: local seed must be 32 bytes, got %d", len(seed))
	}

	var hmacKey [32]byte
	if err := deriveKey(seed, seedInfoHMAC, hmacKey[:]); err != nil {
		return nil, fmt.Errorf("kms: derive hmac key: %w", err)
	}

	xtsKey := make([]byte, xtsKeyLen)
	if err := deriveKey(seed, seedInfoXTS, xtsKey); err != nil {
		return nil, fmt.Errorf("kms: derive xts key: %w", err)
	}
	xts, err := xtscrypto.NewCipher(xtsKey)
	if err != nil {
		return nil, fmt.Errorf("kms: build xts cipher: %w", err)
	}

	return &LocalKMS{hmacKey: hmacKey, xts: xts}, nil
}

func deriveKey(seed []byte, info string, out []byte) error {
	r := hkdf.New(sha3.New256, seed, nil, []byte(info))
	_, err := io.ReadFull(r, out)
	return err
}

// Batch performs every item's operation locally and in order. Items never
// fail individually in this implementation (no network round trip to lose),
// except for malformed input sizes.
func (k *LocalKMS) Batch(_ context.Context, items []Item) ([]ItemResult, error) {
	results := make([]ItemResult, len(items))
	for i, item := range items {
		data, err := k.do(item)
		results[i] = ItemResult{Data: data, Err: err}
	}
	return results, nil
}

func (k *LocalKMS) do(item Item) ([]byte, error) {
	switch item.Op {
	case OpMAC:
		mac := hmac.New(func() hash.Hash { return sha3.New256() }, k.hmacKey[:])
		_, _ = mac.Write(item.Plaintext)
		return mac.Sum(nil), nil

	case OpEncrypt:
		out := make([]byte, len(item.Plaintext))
		if err := k.xts.Encrypt(out, item.Plaintext, item.Tweak); err != nil {
			return nil, fmt.Errorf("kms: encrypt: %w", err)
		}
		return out, nil

	case OpDecrypt:
		out := make([]byte, len(item.Plaintext))
		if err := k.xts.Decrypt(out, item.Plaintext, item.Tweak); err != nil {
			return nil, fmt.Errorf("kms: decrypt: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("kms: unknown operation %d", item.Op)
	}
}
