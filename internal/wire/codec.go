package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/edirooss/findex-server/internal/memory"
)

// EncodeBatchReadRequest concatenates addresses as raw bytes, per §4.5.
func EncodeBatchReadRequest(addresses []memory.Address) []byte {
	buf := make([]byte, 0, len(addresses)*memory.AddressLength)
	for _, a := range addresses {
		buf = append(buf, a[:]...)
	}
	return buf
}

// DecodeBatchReadRequest splits body into addresses, erroring if its length
// is not a multiple of memory.AddressLength.
func DecodeBatchReadRequest(body []byte) ([]memory.Address, error) {
	if len(body)%memory.AddressLength != 0 {
		return nil, fmt.Errorf("wire: batch_read body length %d not a multiple of %d", len(body), memory.AddressLength)
	}
	n := len(body) / memory.AddressLength
	out := make([]memory.Address, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], body[i*memory.AddressLength:(i+1)*memory.AddressLength])
	}
	return out, nil
}

// EncodeBatchReadResponse encodes words as a sequence of (tag, word).
func EncodeBatchReadResponse(words []memory.Word) []byte {
	var buf []byte
	for _, w := range words {
		buf = PutOption(buf, w)
	}
	return buf
}

// DecodeBatchReadResponse parses n (tag, word) entries of wordLength each.
func DecodeBatchReadResponse(body []byte, n, wordLength int) ([]memory.Word, error) {
	r := bufio.NewReader(bytes.NewReader(body))
	out := make([]memory.Word, n)
	for i := 0; i < n; i++ {
		w, err := ReadOption(r, wordLength)
		if err != nil {
			return nil, fmt.Errorf("wire: decode batch_read response entry %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// EncodeGuardedWriteRequest serializes the guard and bindings per §4.5.
func EncodeGuardedWriteRequest(guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) []byte {
	buf := make([]byte, 0, memory.AddressLength+1+len(guardWord)+10+len(bindings)*(memory.AddressLength+len(guardWord)))
	buf = append(buf, guardAddr[:]...)
	buf = PutOption(buf, guardWord)
	buf = PutUvarint(buf, uint64(len(bindings)))
	for _, b := range bindings {
		buf = append(buf, b.Address[:]...)
		buf = append(buf, b.Word...)
	}
	return buf
}

// DecodeGuardedWriteRequest parses a guarded_write request body.
// wordLength is the deployment's fixed WORD_LENGTH.
func DecodeGuardedWriteRequest(body []byte, wordLength int) (guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding, err error) {
	r := bufio.NewReader(bytes.NewReader(body))

	guardAddr, err = ReadAddress(r)
	if err != nil {
		return guardAddr, nil, nil, fmt.Errorf("wire: decode guarded_write: %w", err)
	}

	guardWord, err = ReadOption(r, wordLength)
	if err != nil {
		return guardAddr, nil, nil, fmt.Errorf("wire: decode guarded_write: %w", err)
	}

	count, err := ReadUvarint(r)
	if err != nil {
		return guardAddr, nil, nil, fmt.Errorf("wire: decode guarded_write: %w", err)
	}

	bindings = make([]memory.Binding, count)
	for i := uint64(0); i < count; i++ {
		addr, err := ReadAddress(r)
		if err != nil {
			return guardAddr, nil, nil, fmt.Errorf("wire: decode guarded_write binding %d: %w", i, err)
		}
		word := make(memory.Word, wordLength)
		if _, err := io.ReadFull(r, word); err != nil {
			return guardAddr, nil, nil, fmt.Errorf("wire: decode guarded_write binding %d word: %w", i, err)
		}
		bindings[i] = memory.Binding{Address: addr, Word: word}
	}
	return guardAddr, guardWord, bindings, nil
}

// EncodeGuardedWriteResponse encodes the prior guard word as a single
// (tag, word) entry, the same convention as one element of a batch_read
// response.
func EncodeGuardedWriteResponse(prev memory.Word) []byte {
	return PutOption(nil, prev)
}

// DecodeGuardedWriteResponse decodes the single (tag, word) response entry.
func DecodeGuardedWriteResponse(body []byte, wordLength int) (memory.Word, error) {
	r := bufio.NewReader(bytes.NewReader(body))
	w, err := ReadOption(r, wordLength)
	if err != nil {
		return nil, fmt.Errorf("wire: decode guarded_write response: %w", err)
	}
	return w, nil
}
