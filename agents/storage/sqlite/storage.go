// Package sqlite stores sessions in a sqlite table
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bububa/atomic-cookbook/agents/storage"
)

// DefaultTable is the sessions table name
const DefaultTable = "agent_sessions"

// Storage is a sqlite session table
type Storage struct {
	db    *sql.DB
	table string
}

var _ storage.Storage = (*Storage)(nil)

// New uses an opened sqlite3 database
func New(db *sql.DB, table string) (*Storage, error) {
	if table == "" {
		table = DefaultTable
	}
	if !storage.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Storage{db: db, table: table}, nil
}

// Open opens the sqlite database file, ":memory:" keeps it in memory
func Open(path string, table string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps in memory databases alive and serializes writes
	db.SetMaxOpenConns(1)
	s, err := New(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Create(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    session_id TEXT PRIMARY KEY,
    agent_name TEXT,
    user_id TEXT,
    memory TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_user_id ON %[1]s(user_id);`, s.table))
	return err
}

func (s *Storage) Read(ctx context.Context, sessionID string) (*storage.Session, error) {
	var (
		ret                  = &storage.Session{ID: sessionID}
		memory               string
		createdAt, updatedAt int64
	)
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT agent_name, user_id, memory, created_at, updated_at FROM %s WHERE session_id = ?", s.table), sessionID)
	if err := row.Scan(&ret.AgentName, &ret.UserID, &memory, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, err
	}
	if memory != "" {
		if err := json.Unmarshal([]byte(memory), &ret.Memory); err != nil {
			return nil, fmt.Errorf("decode memory: %w", err)
		}
	}
	ret.CreatedAt = time.Unix(0, createdAt).UTC()
	ret.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return ret, nil
}

func (s *Storage) Upsert(ctx context.Context, session *storage.Session) error {
	storage.Touch(session)
	memory, err := json.Marshal(session.Memory)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (session_id, agent_name, user_id, memory, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    agent_name = excluded.agent_name,
    user_id = excluded.user_id,
    memory = excluded.memory,
    updated_at = excluded.updated_at`, s.table),
		session.ID, session.AgentName, session.UserID, string(memory),
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano())
	return err
}

func (s *Storage) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", s.table), sessionID)
	return err
}

func (s *Storage) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf("SELECT session_id FROM %s", s.table)
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY session_id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Storage) Drop(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table))
	return err
}
