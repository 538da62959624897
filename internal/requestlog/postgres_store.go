package requestlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS request_logs (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id  TEXT NOT NULL,
	key_hash    TEXT NOT NULL,
	route       TEXT NOT NULL,
	model       TEXT NOT NULL,
	status      INTEGER NOT NULL,
	streamed    BOOLEAN NOT NULL DEFAULT false,
	fallback    TEXT NOT NULL DEFAULT '',
	latency_ms  BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS request_logs_key_hash_created_at_idx ON request_logs (key_hash, created_at);
`

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the request_logs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate request_logs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Log(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO request_logs (request_id, key_hash, route, model, status, streamed, fallback, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		entry.RequestID, entry.KeyHash, entry.Route, entry.Model,
		entry.Status, entry.Streamed, entry.Fallback, entry.LatencyMs,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log request: %w", err)
	}

	return nil
}
