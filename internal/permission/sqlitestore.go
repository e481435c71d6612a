package permission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// SQLiteStore is the SQLite-backed Permissions Store, sharing the connection
// style of the SQLite backend memory (same DSN options, single-writer pool).
// Each operation is a single SQL statement; no explicit transaction is used.
type SQLiteStore struct {
	db *sql.DB
}

const createPermissionTableSQL = `
CREATE TABLE IF NOT EXISTS permissions (
	user_id    TEXT    NOT NULL,
	index_id   BLOB    NOT NULL,
	permission INTEGER NOT NULL,
	PRIMARY KEY (user_id, index_id)
);`

// OpenSQLiteStore opens (creating if necessary) the permissions table inside
// the SQLite file at path. Pass ":memory:" for an ephemeral store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("permission: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(createPermissionTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("permission: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateIndex(ctx context.Context, user string) (uuid.UUID, error) {
	indexID := uuid.New()
	idBytes, _ := indexID.MarshalBinary()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permissions (user_id, index_id, permission) VALUES (?, ?, ?)`,
		user, idBytes, int(Admin))
	if err != nil {
		return uuid.Nil, fmt.Errorf("permission: create index: %w", err)
	}
	return indexID, nil
}

func (s *SQLiteStore) Get(ctx context.Context, user string, indexID uuid.UUID) (Permission, error) {
	idBytes, _ := indexID.MarshalBinary()

	var perm int
	err := s.db.QueryRowContext(ctx,
		`SELECT permission FROM permissions WHERE user_id = ? AND index_id = ?`,
		user, idBytes).Scan(&perm)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("permission: get: %w", err)
	}
	return Permission(perm), nil
}

func (s *SQLiteStore) List(ctx context.Context, user string) (map[uuid.UUID]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT index_id, permission FROM permissions WHERE user_id = ?`, user)
	if err != nil {
		return nil, fmt.Errorf("permission: list: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Permission)
	for rows.Next() {
		var idBytes []byte
		var perm int
		if err := rows.Scan(&idBytes, &perm); err != nil {
			return nil, fmt.Errorf("permission: list scan: %w", err)
		}
		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return nil, fmt.Errorf("permission: list: malformed index_id: %w", err)
		}
		out[id] = Permission(perm)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Set(ctx context.Context, user string, perm Permission, indexID uuid.UUID) error {
	idBytes, _ := indexID.MarshalBinary()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permissions (user_id, index_id, permission) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, index_id) DO UPDATE SET permission = excluded.permission`,
		user, idBytes, int(perm))
	if err != nil {
		return fmt.Errorf("permission: set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Revoke(ctx context.Context, user string, indexID uuid.UUID) error {
	idBytes, _ := indexID.MarshalBinary()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM permissions WHERE user_id = ? AND index_id = ?`, user, idBytes)
	if err != nil {
		return fmt.Errorf("permission: revoke: %w", err)
	}
	return nil
}
