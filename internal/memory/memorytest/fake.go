// Package memorytest provides an in-process MemoryADT double for exercising
// layers above the wire (encryption, REST client/server) without a real
// Redis or SQLite backend.
package memorytest

import (
	"context"
	"sync"

	"github.com/edirooss/findex-server/internal/memory"
)

// Fake is a single-index, concurrency-safe memory.ADT backed by a map. Its
// locking strategy mirrors internal/infrastructure/objectstore.ObjectStore:
// one RWMutex guarding a plain map, writers serialized, readers shared.
type Fake struct {
	mu    sync.RWMutex
	words map[memory.Address]memory.Word
}

// New returns an empty fake memory.
func New() *Fake {
	return &Fake{words: make(map[memory.Address]memory.Word)}
}

func (f *Fake) BatchRead(_ context.Context, addresses []memory.Address) ([]memory.Word, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]memory.Word, len(addresses))
	for i, a := range addresses {
		if w, ok := f.words[a]; ok {
			out[i] = w.Clone()
		}
	}
	return out, nil
}

func (f *Fake) GuardedWrite(_ context.Context, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.words[guardAddr]
	prev := current.Clone()

	if !current.Equal(guardWord) {
		return prev, nil
	}

	for _, b := range bindings {
		f.words[b.Address] = b.Word.Clone()
	}
	return prev, nil
}

// Len reports the number of bound addresses, for test assertions.
func (f *Fake) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.words)
}
