// Package storage persists agent sessions so conversations survive restarts
package storage

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/bububa/atomic-cookbook/components"
)

// ErrSessionNotFound is returned by Read when the session does not exist
var ErrSessionNotFound = errors.New("session not found")

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Session is a persisted agent conversation
type Session struct {
	ID        string                     `json:"session_id" yaml:"session_id"`
	AgentName string                     `json:"agent_name,omitempty" yaml:"agent_name,omitempty"`
	UserID    string                     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Memory    []components.MessageRecord `json:"memory,omitempty" yaml:"memory,omitempty"`
	CreatedAt time.Time                  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at" yaml:"updated_at"`
}

// Storage stores agent sessions
type Storage interface {
	// Create prepares the storage, it is safe to call it many times
	Create(ctx context.Context) error
	// Read returns ErrSessionNotFound when the session does not exist
	Read(ctx context.Context, sessionID string) (*Session, error)
	// Upsert creates or replaces a session
	Upsert(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
	// SessionIDs lists sessions of a user, all sessions when userID is empty
	SessionIDs(ctx context.Context, userID string) ([]string, error)
	// Drop removes the storage and all its sessions
	Drop(ctx context.Context) error
}

// NewSessionID returns a random session id
func NewSessionID() string {
	return uuid.NewString()
}

// Touch stamps the session timestamps before it is written
func Touch(s *Session) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// ValidTableName reports whether name could be used as a sql table name
func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}
