// Package backend implements the Backend Memory (B): the server-side,
// permissioned, multi-tenant guarded key-value store, in its Redis and
// SQLite variants.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edirooss/findex-server/internal/memory"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

const createMemoryTableSQL = `
CREATE TABLE IF NOT EXISTS findex_memory (
	index_id BLOB    NOT NULL,
	a        BLOB    NOT NULL,
	w        BLOB    NOT NULL,
	PRIMARY KEY (index_id, a)
);`

// SQLiteMemory is the SQLite-backed memory.IndexedADT, grounded on
// original_source's SqliteMemory: one table shared by every index, scoped
// by an index_id column rather than one table per index, since Go's
// IndexedADT already takes indexID as an explicit parameter per call.
type SQLiteMemory struct {
	db *sql.DB
}

// OpenSQLiteMemory opens (creating if necessary) the findex_memory table in
// the SQLite file at path. Pass ":memory:" for an ephemeral store.
func OpenSQLiteMemory(path string) (*SQLiteMemory, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("backend: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(createMemoryTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("backend: create table: %w", err)
	}
	return &SQLiteMemory{db: db}, nil
}

// Close closes the underlying database handle.
func (m *SQLiteMemory) Close() error {
	return m.db.Close()
}

// BatchRead implements memory.IndexedADT. Return order of the SQL SELECT is
// undefined, so results are collected into a map first and replayed in
// input order, following original_source's post-processing comment.
func (m *SQLiteMemory) BatchRead(ctx context.Context, indexID [16]byte, addresses []memory.Address) ([]memory.Word, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(addresses)*2)
	args := make([]any, 0, len(addresses)+1)
	args = append(args, indexID[:])
	for i, a := range addresses {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, a[:])
	}

	query := fmt.Sprintf(`SELECT a, w FROM findex_memory WHERE index_id = ? AND a IN (%s)`, placeholders)
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("backend: batch_read: %w", err)
	}
	defer rows.Close()

	found := make(map[memory.Address]memory.Word)
	for rows.Next() {
		var aBytes, wBytes []byte
		if err := rows.Scan(&aBytes, &wBytes); err != nil {
			return nil, fmt.Errorf("backend: batch_read scan: %w", err)
		}
		var a memory.Address
		copy(a[:], aBytes)
		found[a] = wBytes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backend: batch_read rows: %w", err)
	}

	out := make([]memory.Word, len(addresses))
	for i, a := range addresses {
		if w, ok := found[a]; ok {
			out[i] = w
		}
	}
	return out, nil
}

// GuardedWrite implements memory.IndexedADT via a BEGIN IMMEDIATE
// transaction: read the guard word, compare, and — only on match — apply
// every binding with INSERT OR REPLACE (last occurrence in bindings wins
// for a repeated address) before committing.
func (m *SQLiteMemory) GuardedWrite(ctx context.Context, indexID [16]byte, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("backend: guarded_write acquire conn: %w", err)
	}
	defer conn.Close()

	// modernc.org/sqlite's database/sql transactions BEGIN deferred; take
	// the write lock immediately so no other connection can interleave
	// between the guard read and the bindings write.
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, fmt.Errorf("backend: begin immediate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	var currentBytes []byte
	err = conn.QueryRowContext(ctx,
		`SELECT w FROM findex_memory WHERE index_id = ? AND a = ?`,
		indexID[:], guardAddr[:]).Scan(&currentBytes)
	var current memory.Word
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = nil
	case err != nil:
		return nil, fmt.Errorf("backend: guarded_write read guard: %w", err)
	default:
		current = currentBytes
	}

	if !current.Equal(guardWord) {
		if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
			return nil, fmt.Errorf("backend: guarded_write commit: %w", err)
		}
		committed = true
		return current, nil
	}

	for _, b := range bindings {
		if _, err := conn.ExecContext(ctx,
			`INSERT OR REPLACE INTO findex_memory (index_id, a, w) VALUES (?, ?, ?)`,
			indexID[:], b.Address[:], []byte(b.Word)); err != nil {
			return nil, fmt.Errorf("backend: guarded_write apply binding: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return nil, fmt.Errorf("backend: guarded_write commit: %w", err)
	}
	committed = true
	return current, nil
}
