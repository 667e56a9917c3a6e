package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the snapshot document as JSONB in a key/value table.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context) (*Snapshot, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM snapshots WHERE key = $1`, snapshotKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	snap := New()
	if err := json.Unmarshal(value, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

func (p *Postgres) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = p.pool.Exec(ctx, `INSERT INTO snapshots (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		snapshotKey, data)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
