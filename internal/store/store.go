package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type Store struct {
	pool pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: p}, nil
}

func newWithPool(p pool) *Store {
	return &Store{pool: p}
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_records (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	is_scam        BOOLEAN NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	scam_type      TEXT,
	evidence_level TEXT NOT NULL,
	mode           TEXT NOT NULL,
	payload        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_records_session_idx ON analysis_records (session_id, created_at);

CREATE TABLE IF NOT EXISTS record_entities (
	record_id TEXT NOT NULL REFERENCES analysis_records (id) ON DELETE CASCADE,
	kind      TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (record_id, kind, value)
);
CREATE INDEX IF NOT EXISTS record_entities_value_idx ON record_entities (kind, value);

CREATE TABLE IF NOT EXISTS honeypot_turns (
	record_id       TEXT NOT NULL REFERENCES analysis_records (id) ON DELETE CASCADE,
	turn_number     INTEGER NOT NULL,
	scammer_message TEXT NOT NULL,
	agent_response  TEXT NOT NULL,
	PRIMARY KEY (record_id, turn_number)
);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
