// Package xtscrypto implements the AES-XTS tweakable block cipher mode
// (IEEE P1619 / NIST SP 800-38E) directly on top of crypto/aes and
// crypto/cipher.
//
// Every XTS implementation visible across the retrieval pack (disk/FDE
// oriented) derives its tweak from a sector number, not from an arbitrary
// 128-bit value supplied by the caller. This deployment's tweak is a
// 32-byte address token truncated to one AES block (16 bytes), so none of
// those packages can be wired without paying the same cost as implementing
// the GF(2^128) doubling step against cipher.Block directly. See DESIGN.md.
package xtscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

// BlockSize is the AES block size, and therefore the XTS tweak size.
const BlockSize = aes.BlockSize

// ErrInvalidKeySize is returned when the supplied key is not exactly twice
// an AES key size (32, 48, or 64 bytes for AES-128/192/256-XTS).
var ErrInvalidKeySize = errors.New("xtscrypto: key must be twice an AES key size")

// ErrInvalidTweakSize is returned when a tweak is not exactly BlockSize bytes.
var ErrInvalidTweakSize = errors.New("xtscrypto: tweak must be 16 bytes")

// ErrShortInput is returned when plaintext/ciphertext is shorter than one
// block; XTS-AES requires ciphertext stealing below one block and this
// deployment never stores sub-block words, so short input is rejected
// rather than silently padded.
var ErrShortInput = errors.New("xtscrypto: input must be at least one AES block")

// Cipher implements AES-XTS with a fixed, caller-supplied 16-byte tweak per
// call (no internal sector counter: the tweak IS the token).
type Cipher struct {
	dataBlock  cipher.Block
	tweakBlock cipher.Block
}

// NewCipher builds an XTS cipher from a double-length AES key: the first
// half encrypts data, the second half encrypts tweaks, per the XTS
// construction.
func NewCipher(key []byte) (*Cipher, error) {
	half := len(key) / 2
	if len(key)%2 != 0 || (half != 16 && half != 24 && half != 32) {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	dataBlock, err := aes.NewCipher(key[:half])
	if err != nil {
		return nil, fmt.Errorf("xtscrypto: data cipher: %w", err)
	}
	tweakBlock, err := aes.NewCipher(key[half:])
	if err != nil {
		return nil, fmt.Errorf("xtscrypto: tweak cipher: %w", err)
	}
	return &Cipher{dataBlock: dataBlock, tweakBlock: tweakBlock}, nil
}

// Encrypt writes len(src)-bytes of XTS-encrypted ciphertext to dst using
// tweak as the initial tweak value. src and dst may overlap exactly.
func (c *Cipher) Encrypt(dst, src, tweak []byte) error {
	return c.process(dst, src, tweak, true)
}

// Decrypt is the inverse of Encrypt.
func (c *Cipher) Decrypt(dst, src, tweak []byte) error {
	return c.process(dst, src, tweak, false)
}

func (c *Cipher) process(dst, src, tweak []byte, encrypt bool) error {
	if len(tweak) != BlockSize {
		return ErrInvalidTweakSize
	}
	if len(src) < BlockSize {
		return ErrShortInput
	}
	if len(dst) != len(src) {
		return fmt.Errorf("xtscrypto: dst/src length mismatch")
	}

	var t [BlockSize]byte
	c.tweakBlock.Encrypt(t[:], tweak)

	full := len(src) / BlockSize
	rem := len(src) % BlockSize

	var block [BlockSize]byte
	for i := 0; i < full; i++ {
		off := i * BlockSize
		// When stealing follows, t is not advanced past the last full block.
		// Encryption processes that block under t and the stealing block under
		// t doubled; decryption uses the two tweaks in the reverse order.
		stealing := i == full-1 && rem != 0
		tt := t
		if stealing && !encrypt {
			gfDouble(&tt)
		}
		xorBlock(block[:], src[off:off+BlockSize], tt[:])
		if encrypt {
			c.dataBlock.Encrypt(block[:], block[:])
		} else {
			c.dataBlock.Decrypt(block[:], block[:])
		}
		xorBlock(dst[off:off+BlockSize], block[:], tt[:])

		if !stealing {
			gfDouble(&t)
		}
	}

	if rem != 0 {
		// Ciphertext stealing for the final partial block (IEEE P1619 §5.1).
		off := full * BlockSize
		prevOff := (full - 1) * BlockSize

		var cc [BlockSize]byte
		copy(cc[:], dst[prevOff:prevOff+BlockSize])

		var pp [BlockSize]byte
		copy(pp[:rem], src[off:off+rem])
		copy(pp[rem:], cc[rem:])

		tt := t
		if encrypt {
			gfDouble(&tt)
		}
		xorBlock(block[:], pp[:], tt[:])
		if encrypt {
			c.dataBlock.Encrypt(block[:], block[:])
		} else {
			c.dataBlock.Decrypt(block[:], block[:])
		}
		xorBlock(dst[prevOff:prevOff+BlockSize], block[:], tt[:])
		copy(dst[off:off+rem], cc[:rem])
	}

	return nil
}

func xorBlock(dst, a, b []byte) {
	subtle.XORBytes(dst, a, b)
}

// gfDouble multiplies t by the generator alpha=2 in GF(2^128) as defined by
// IEEE P1619, in place.
func gfDouble(t *[BlockSize]byte) {
	var carry byte
	for i := 0; i < BlockSize; i++ {
		cur := t[i]
		t[i] = (cur << 1) | carry
		carry = cur >> 7
	}
	if carry != 0 {
		t[0] ^= 0x87
	}
}
