// Package permissiontest provides an in-process permission.Store double,
// following the same map-plus-mutex shape as memorytest.Fake.
package permissiontest

import (
	"context"
	"sync"

	"github.com/edirooss/findex-server/internal/permission"
	"github.com/google/uuid"
)

type key struct {
	user    string
	indexID uuid.UUID
}

// Fake is a concurrency-safe, in-memory permission.Store.
type Fake struct {
	mu    sync.RWMutex
	grant map[key]permission.Permission
}

// New returns an empty fake store.
func New() *Fake {
	return &Fake{grant: make(map[key]permission.Permission)}
}

func (f *Fake) CreateIndex(_ context.Context, user string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	f.grant[key{user, id}] = permission.Admin
	return id, nil
}

func (f *Fake) Get(_ context.Context, user string, indexID uuid.UUID) (permission.Permission, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.grant[key{user, indexID}]
	if !ok {
		return 0, permission.ErrNotFound
	}
	return p, nil
}

func (f *Fake) List(_ context.Context, user string) (map[uuid.UUID]permission.Permission, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[uuid.UUID]permission.Permission)
	for k, p := range f.grant {
		if k.user == user {
			out[k.indexID] = p
		}
	}
	return out, nil
}

func (f *Fake) Set(_ context.Context, user string, perm permission.Permission, indexID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.grant[key{user, indexID}] = perm
	return nil
}

func (f *Fake) Revoke(_ context.Context, user string, indexID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.grant, key{user, indexID})
	return nil
}
