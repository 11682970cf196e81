// Package postgres stores sessions in a postgres table with a jsonb memory column
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bububa/atomic-cookbook/agents/storage"
)

// DefaultTable is the sessions table name
const DefaultTable = "agent_sessions"

// Storage is a postgres session table
type Storage struct {
	pool  *pgxpool.Pool
	table string
}

var _ storage.Storage = (*Storage)(nil)

func New(pool *pgxpool.Pool, table string) (*Storage, error) {
	if table == "" {
		table = DefaultTable
	}
	if !storage.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Storage{pool: pool, table: table}, nil
}

// Connect opens a pool for dsn
func Connect(ctx context.Context, dsn string, table string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) Create(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    session_id TEXT PRIMARY KEY,
    agent_name TEXT,
    user_id TEXT,
    memory JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_user_id ON %[1]s(user_id);`, s.table))
	return err
}

func (s *Storage) Read(ctx context.Context, sessionID string) (*storage.Session, error) {
	var (
		ret    = &storage.Session{ID: sessionID}
		memory []byte
	)
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT agent_name, user_id, memory, created_at, updated_at FROM %s WHERE session_id = $1", s.table), sessionID)
	if err := row.Scan(&ret.AgentName, &ret.UserID, &memory, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, err
	}
	if len(memory) > 0 {
		if err := json.Unmarshal(memory, &ret.Memory); err != nil {
			return nil, fmt.Errorf("decode memory: %w", err)
		}
	}
	return ret, nil
}

func (s *Storage) Upsert(ctx context.Context, session *storage.Session) error {
	storage.Touch(session)
	memory, err := json.Marshal(session.Memory)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (session_id, agent_name, user_id, memory, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id) DO UPDATE SET
    agent_name = EXCLUDED.agent_name,
    user_id = EXCLUDED.user_id,
    memory = EXCLUDED.memory,
    updated_at = EXCLUDED.updated_at`, s.table),
		session.ID, session.AgentName, session.UserID, string(memory), session.CreatedAt, session.UpdatedAt)
	return err
}

func (s *Storage) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", s.table), sessionID)
	return err
}

func (s *Storage) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf("SELECT session_id FROM %s", s.table)
	var args []any
	if userID != "" {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	rows, err := s.pool.Query(ctx, query+" ORDER BY session_id", args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Storage) Drop(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table))
	return err
}
