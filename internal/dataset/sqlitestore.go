package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

const createDatasetTableSQL = `
CREATE TABLE IF NOT EXISTS findex_dataset_entries (
	index_id BLOB NOT NULL,
	entry_id BLOB NOT NULL,
	payload  BLOB NOT NULL,
	PRIMARY KEY (index_id, entry_id)
);`

// SQLiteStore is the SQLite-backed dataset Store, table-per-deployment like
// backend.SQLiteMemory rather than table-per-index.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) the dataset table at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dataset: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(createDatasetTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataset: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AddEntries(ctx context.Context, indexID uuid.UUID, entries [][]byte) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		id := uuid.New()
		ids[i] = id
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO findex_dataset_entries (index_id, entry_id, payload) VALUES (?, ?, ?)`,
			indexID[:], id[:], e); err != nil {
			return nil, fmt.Errorf("dataset: add_entries: %w", err)
		}
	}
	return ids, nil
}

func (s *SQLiteStore) GetEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) ([][]byte, error) {
	out := make([][]byte, len(entryIDs))
	for i, id := range entryIDs {
		var payload []byte
		err := s.db.QueryRowContext(ctx,
			`SELECT payload FROM findex_dataset_entries WHERE index_id = ? AND entry_id = ?`,
			indexID[:], id[:]).Scan(&payload)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("dataset: get_entries: entry %s: %w", id, ErrNotFound)
		case err != nil:
			return nil, fmt.Errorf("dataset: get_entries: %w", err)
		}
		out[i] = payload
	}
	return out, nil
}

func (s *SQLiteStore) DeleteEntries(ctx context.Context, indexID uuid.UUID, entryIDs []uuid.UUID) error {
	for _, id := range entryIDs {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM findex_dataset_entries WHERE index_id = ? AND entry_id = ?`,
			indexID[:], id[:]); err != nil {
			return fmt.Errorf("dataset: delete_entries: %w", err)
		}
	}
	return nil
}
