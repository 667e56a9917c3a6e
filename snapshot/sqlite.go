package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const snapshotKey = "session"

// SQLite stores the snapshot document in a one-row key/value table.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (*Snapshot, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, snapshotKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	snap := New()
	if err := json.Unmarshal([]byte(value), snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

func (s *SQLite) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		snapshotKey, string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
