package memorytest

import (
	"context"
	"sync"

	"github.com/edirooss/findex-server/internal/memory"
)

type indexedKey struct {
	indexID [16]byte
	addr    memory.Address
}

// IndexedFake is a multi-tenant memory.IndexedADT double, the server-side
// counterpart to Fake, used to exercise internal/httpapi without a real
// Redis or SQLite backend.
type IndexedFake struct {
	mu    sync.RWMutex
	words map[indexedKey]memory.Word
}

// NewIndexed returns an empty fake indexed memory.
func NewIndexed() *IndexedFake {
	return &IndexedFake{words: make(map[indexedKey]memory.Word)}
}

func (f *IndexedFake) BatchRead(_ context.Context, indexID [16]byte, addresses []memory.Address) ([]memory.Word, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]memory.Word, len(addresses))
	for i, a := range addresses {
		if w, ok := f.words[indexedKey{indexID, a}]; ok {
			out[i] = w.Clone()
		}
	}
	return out, nil
}

func (f *IndexedFake) GuardedWrite(_ context.Context, indexID [16]byte, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.words[indexedKey{indexID, guardAddr}]
	prev := current.Clone()

	if !current.Equal(guardWord) {
		return prev, nil
	}

	for _, b := range bindings {
		f.words[indexedKey{indexID, b.Address}] = b.Word.Clone()
	}
	return prev, nil
}
