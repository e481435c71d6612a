// Package encryption implements the Encryption Layer (E): a plaintext
// memory.ADT built on top of a ciphertext memory.ADT plus a kms.Client,
// translating addresses to pseudorandom tokens via HMAC and words to
// ciphertexts via AES-XTS keyed on those tokens.
package encryption

import (
	"context"
	"fmt"

	"github.com/edirooss/findex-server/internal/kms"
	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/xtscrypto"
)

// Layer is the client-side KmsEncryptionLayer: it wraps an inner ciphertext
// memory.ADT (in practice the REST Memory Client) and delegates every
// cryptographic primitive to a kms.Client in batches, so that one
// guarded_write costs at most three KMS round trips (MAC, encrypt, decrypt
// of the guard result) and one batch_read costs at most two (MAC, decrypt),
// independent of the number of addresses involved.
type Layer struct {
	kmsClient kms.Client
	inner     memory.ADT
}

// New builds an encryption layer over inner, delegating crypto to kmsClient.
func New(kmsClient kms.Client, inner memory.ADT) *Layer {
	return &Layer{kmsClient: kmsClient, inner: inner}
}

// batchPermute computes HMAC-SHA3-256 tokens for each address, truncated to
// memory.AddressLength bytes, in one KMS batch.
func (l *Layer) batchPermute(ctx context.Context, addresses []memory.Address) ([]memory.Address, error) {
	items := make([]kms.Item, len(addresses))
	for i, a := range addresses {
		items[i] = kms.Item{Op: kms.OpMAC, Plaintext: a[:]}
	}

	results, err := l.kmsClient.Batch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("encryption: mac batch: %w", err)
	}

	tokens := make([]memory.Address, len(addresses))
	for i, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("encryption: mac item %d failed: %w", i, r.Err)
		}
		if len(r.Data) < memory.AddressLength {
			return nil, fmt.Errorf("encryption: mac output too short: got %d bytes, want >= %d", len(r.Data), memory.AddressLength)
		}
		copy(tokens[i][:], r.Data[:memory.AddressLength])
	}
	return tokens, nil
}

// batchCrypt runs op (OpEncrypt or OpDecrypt) over words, using the paired
// token as the AES-XTS tweak, in one KMS batch.
func (l *Layer) batchCrypt(ctx context.Context, op kms.Operation, tokens []memory.Address, words []memory.Word) ([]memory.Word, error) {
	items := make([]kms.Item, len(words))
	for i, w := range words {
		items[i] = kms.Item{Op: op, Plaintext: w, Tweak: tokens[i][:xtscrypto.BlockSize]}
	}

	results, err := l.kmsClient.Batch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("encryption: crypto batch: %w", err)
	}

	out := make([]memory.Word, len(words))
	for i, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("encryption: crypto item %d failed: %w", i, r.Err)
		}
		out[i] = r.Data
	}
	return out, nil
}

// GuardedWrite implements memory.ADT. It permutes (bindings' addresses ++
// guard address), encrypts (bindings' words ++ guard word if present) under
// the matching tokens, splits the permuted/encrypted pairs back into a
// ciphertext guard and ciphertext bindings at index len(bindings), forwards
// to the inner memory, and decrypts whatever ciphertext guard word comes
// back using the guard's own token as tweak.
func (l *Layer) GuardedWrite(ctx context.Context, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	addresses := make([]memory.Address, 0, len(bindings)+1)
	for _, b := range bindings {
		addresses = append(addresses, b.Address)
	}
	addresses = append(addresses, guardAddr)

	tokens, err := l.batchPermute(ctx, addresses)
	if err != nil {
		return nil, err
	}

	words := make([]memory.Word, 0, len(bindings)+1)
	for _, b := range bindings {
		words = append(words, b.Word)
	}
	hasGuardWord := guardWord != nil
	if hasGuardWord {
		words = append(words, guardWord)
	}

	// tokens has len(bindings)+1 entries (one per address, including the
	// guard); words only carries a trailing guard entry when guardWord is
	// present, so the token slice passed to batchCrypt must match in length.
	cryptTokens := tokens[:len(bindings)]
	if hasGuardWord {
		cryptTokens = tokens[:len(bindings)+1]
	}

	encryptedWords, err := l.batchCrypt(ctx, kms.OpEncrypt, cryptTokens, words)
	if err != nil {
		return nil, err
	}

	permutedGuardAddr := tokens[len(bindings)]
	var encryptedGuardWord memory.Word
	if hasGuardWord {
		encryptedGuardWord = encryptedWords[len(bindings)]
	}

	encryptedBindings := make([]memory.Binding, len(bindings))
	for i := range bindings {
		encryptedBindings[i] = memory.Binding{Address: tokens[i], Word: encryptedWords[i]}
	}

	encryptedCurrent, err := l.inner.GuardedWrite(ctx, permutedGuardAddr, encryptedGuardWord, encryptedBindings)
	if err != nil {
		return nil, fmt.Errorf("encryption: inner guarded_write: %w", err)
	}

	if encryptedCurrent == nil {
		return nil, nil
	}

	decrypted, err := l.batchCrypt(ctx, kms.OpDecrypt, []memory.Address{permutedGuardAddr}, []memory.Word{encryptedCurrent})
	if err != nil {
		return nil, err
	}
	return decrypted[0], nil
}

// BatchRead implements memory.ADT. It permutes every address, reads the
// inner memory, filters out absent entries (tracking their positions) so
// only present ciphertexts are decrypted, and reconstructs a full-length
// result preserving the absent positions.
func (l *Layer) BatchRead(ctx context.Context, addresses []memory.Address) ([]memory.Word, error) {
	tokens, err := l.batchPermute(ctx, addresses)
	if err != nil {
		return nil, err
	}

	encryptedWords, err := l.inner.BatchRead(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("encryption: inner batch_read: %w", err)
	}
	if len(encryptedWords) != len(tokens) {
		return nil, fmt.Errorf("encryption: incorrect number of words: expected %d, got %d", len(tokens), len(encryptedWords))
	}

	var presentIdx []int
	var presentTokens []memory.Address
	var presentWords []memory.Word
	for i, w := range encryptedWords {
		if w != nil {
			presentIdx = append(presentIdx, i)
			presentTokens = append(presentTokens, tokens[i])
			presentWords = append(presentWords, w)
		}
	}

	out := make([]memory.Word, len(addresses))
	if len(presentIdx) == 0 {
		return out, nil
	}

	decrypted, err := l.batchCrypt(ctx, kms.OpDecrypt, presentTokens, presentWords)
	if err != nil {
		return nil, err
	}
	for j, i := range presentIdx {
		out[i] = decrypted[j]
	}
	return out, nil
}
