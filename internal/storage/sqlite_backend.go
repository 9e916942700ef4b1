package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register sqlite driver
)

// schemaDDL stores every bucket in one table. position keeps the array order
// the JSON files would have; payload is the item's compact JSON.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS list_items (
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    position INTEGER NOT NULL,
    item_id TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    PRIMARY KEY (kind, status, position)
);

CREATE INDEX IF NOT EXISTS idx_list_items_id ON list_items(kind, item_id);
`

// SQLiteBackend implements ListBackend on a single SQLite file. SaveAll runs
// in one transaction, so a move is atomic.
type SQLiteBackend struct {
	// DBPath is the absolute path to the SQLite database file.
	DBPath string
}

// NewSQLiteBackend creates the database file and schema if needed.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	backend := &SQLiteBackend{DBPath: dbPath}
	if err := backend.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return backend, nil
}

// busyTimeoutDSN makes concurrent writers wait for the lock instead of
// failing with SQLITE_BUSY.
const busyTimeoutDSN = "?_pragma=busy_timeout(5000)"

// connect opens a connection in WAL mode, creating the parent directory.
func (b *SQLiteBackend) connect() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(b.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", b.DBPath+busyTimeoutDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	return db, nil
}

func (b *SQLiteBackend) ensureSchema() error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	return nil
}

// Load returns one bucket in stored order.
func (b *SQLiteBackend) Load(ctx context.Context, kind Kind, status Status) ([]Item, error) {
	db, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM list_items WHERE kind = ? AND status = ? ORDER BY position`,
		string(kind), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s %s: %w", status, kind, err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]Item, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		item, err := decodeItem([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored item: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// Save replaces one bucket.
func (b *SQLiteBackend) Save(ctx context.Context, kind Kind, status Status, items []Item) error {
	return b.SaveAll(ctx, kind, Bucket{Status: status, Items: items})
}

// SaveAll replaces every given bucket inside one transaction.
func (b *SQLiteBackend) SaveAll(ctx context.Context, kind Kind, buckets ...Bucket) error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, bucket := range buckets {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM list_items WHERE kind = ? AND status = ?`,
			string(kind), string(bucket.Status)); err != nil {
			return fmt.Errorf("failed to clear %s %s: %w", bucket.Status, kind, err)
		}
		for pos, item := range bucket.Items {
			payload, err := encodeItem(item)
			if err != nil {
				return fmt.Errorf("failed to encode item %d: %w", pos, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO list_items (kind, status, position, item_id, payload) VALUES (?, ?, ?, ?, ?)`,
				string(kind), string(bucket.Status), pos, item.ID(), string(payload)); err != nil {
				return fmt.Errorf("failed to insert item %d: %w", pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
