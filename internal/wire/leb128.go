// Package wire implements the LEB128 unsigned varint and (tag, word)
// option encoding shared by the REST Memory Client and HTTP Server.
package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/edirooss/findex-server/internal/memory"
)

// PutUvarint appends v to dst as an unsigned LEB128 varint.
func PutUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// ReadUvarint reads an unsigned LEB128 varint from r.
func ReadUvarint(r *bufio.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("wire: read varint: %w", err)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("wire: varint overflow")
		}
	}
}

// optionNone and optionSome are the 1-byte Option tags prefixing an
// optional word on the wire.
const (
	optionNone byte = 0
	optionSome byte = 1
)

// PutOption appends the (tag, word) encoding of w to dst: tag=0 and no
// bytes when w is absent, tag=1 followed by w's bytes otherwise.
func PutOption(dst []byte, w memory.Word) []byte {
	if w == nil {
		return append(dst, optionNone)
	}
	dst = append(dst, optionSome)
	return append(dst, w...)
}

// ReadOption reads one (tag, word) encoding from r, given the deployment's
// fixed wordLength.
func ReadOption(r *bufio.Reader, wordLength int) (memory.Word, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("wire: read option tag: %w", err)
	}
	switch tag {
	case optionNone:
		return nil, nil
	case optionSome:
		w := make(memory.Word, wordLength)
		if _, err := io.ReadFull(r, w); err != nil {
			return nil, fmt.Errorf("wire: read option word: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("wire: invalid option tag %d", tag)
	}
}

// ReadAddress reads one fixed-size memory.Address from r.
func ReadAddress(r *bufio.Reader) (memory.Address, error) {
	var a memory.Address
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return a, fmt.Errorf("wire: read address: %w", err)
	}
	return a, nil
}
