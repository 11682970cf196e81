// Package yamlfile stores each session as a yaml file in a directory
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bububa/atomic-cookbook/agents/storage"
)

const ext = ".yaml"

// Storage is a directory of session yaml files
type Storage struct {
	dir string
	mu  sync.RWMutex
}

var _ storage.Storage = (*Storage)(nil)

func New(dir string) *Storage {
	return &Storage{dir: dir}
}

func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) path(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, sessionID+ext), nil
}

func (s *Storage) Create(_ context.Context) error {
	return os.MkdirAll(s.dir, 0o755)
}

func (s *Storage) Read(_ context.Context, sessionID string) (*storage.Session, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readFile(p)
}

func readFile(p string) (*storage.Session, error) {
	bs, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, err
	}
	ret := new(storage.Session)
	if err := yaml.Unmarshal(bs, ret); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	return ret, nil
}

func (s *Storage) Upsert(ctx context.Context, session *storage.Session) error {
	p, err := s.path(session.ID)
	if err != nil {
		return err
	}
	storage.Touch(session)
	bs, err := yaml.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.Create(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, bs, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *Storage) Delete(_ context.Context, sessionID string) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) SessionIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		if userID != "" {
			session, err := readFile(filepath.Join(s.dir, entry.Name()))
			if err != nil || session.UserID != userID {
				continue
			}
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Storage) Drop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir)
}
