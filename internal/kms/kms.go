// Package kms models the batched key-management RPC the encryption layer
// delegates HMAC and AES-XTS operations to: every cryptographic primitive
// the encryption layer needs is expressed as one "batch message" call, so
// that N addresses cost one round trip instead of N.
package kms

import "context"

// Operation identifies which primitive a batch Item requests.
type Operation int

const (
	// OpMAC computes HMAC-SHA3-256(key, Plaintext) and returns it in ItemResult.Data,
	// truncated by the caller to memory.AddressLength bytes.
	OpMAC Operation = iota
	// OpEncrypt computes AES-XTS(key, tweak=Tweak, plaintext=Plaintext).
	OpEncrypt
	// OpDecrypt computes AES-XTS^-1(key, tweak=Tweak, ciphertext=Plaintext).
	OpDecrypt
)

// Item is one unit of work inside a batch message. Tweak is only consulted
// for OpEncrypt/OpDecrypt.
type Item struct {
	Op        Operation
	Plaintext []byte // input to MAC/Encrypt; ciphertext input to Decrypt
	Tweak     []byte // AES-XTS tweak, exactly xtscrypto.BlockSize bytes
}

// ItemResult is the per-item outcome of a batch message: exactly one of Data
// or Err is set, mirroring the "batch_item" success/failure shape of a KMIP
// response message.
type ItemResult struct {
	Data []byte
	Err  error
}

// Client is the generalized batched-message primitive every KMS deployment
// (remote or local) implements. A single Batch call may mix operations;
// the encryption layer always issues single-operation batches, matching the
// original's build_mac_message_request / build_encrypt_message_request /
// build_decrypt_message_request split.
type Client interface {
	Batch(ctx context.Context, items []Item) ([]ItemResult, error)
}
