package permission

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when the user has no permission recorded on
// an index.
var ErrNotFound = errors.New("permission: not found")

// Store is the Permissions Store (P): a map of (user_id, index_id) ->
// Permission. It is authorization-agnostic — callers (the HTTP layer) are
// responsible for checking that an actor is entitled to call Set/Revoke;
// Store itself only upserts/reads/deletes rows.
type Store interface {
	// CreateIndex allocates a fresh index_id and grants the creator Admin on
	// it, atomically from the caller's point of view.
	CreateIndex(ctx context.Context, user string) (uuid.UUID, error)

	// Get returns the caller's permission on indexID, or ErrNotFound if none
	// is recorded.
	Get(ctx context.Context, user string, indexID uuid.UUID) (Permission, error)

	// List returns every index the user holds a permission on.
	List(ctx context.Context, user string) (map[uuid.UUID]Permission, error)

	// Set upserts user's permission on indexID.
	Set(ctx context.Context, user string, perm Permission, indexID uuid.UUID) error

	// Revoke removes user's permission on indexID. Revoking a non-existent
	// grant is a no-op.
	Revoke(ctx context.Context, user string, indexID uuid.UUID) error
}
