// Package dataset is the minimal pass-through CRUD blob store behind
// POST /datasets/{index}/{add,delete,get}_entries (spec.md's route table),
// scoped by (index_id, entry_uuid), grounded on the teacher's
// internal/infrastructure/datastore.DataStore and internal/redis's
// ChannelRepository CRUD shape.
package dataset

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetEntries for an entry absent under the index.
var ErrNotFound = errors.New("dataset: entry not found")

// Store is a blob store for arbitrary dataset-entry payloads, namespaced by
// index so that one deployment serves every tenant's external collaborator
// dataset from the same backend.
type Store interface {
	// AddEntries stores each entry under a freshly generated UUID and
	// returns the new ids in input order.
	AddEntries(ctx context.Context, indexID uuid.UUID, entries [][]byte) ([]uuid.UUID, error)

	// GetEntries returns each entry's bytes in input order, or ErrNotFound
	// wrapped with the offending id if any entryID is absent.
	GetEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) ([][]byte, error)

	// DeleteEntries removes each entry; deleting an absent id is a no-op.
	DeleteEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) error
}
