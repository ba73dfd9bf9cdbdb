// Package sessionstore persists the session user between process restarts,
// one record per browser session.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"carbonmarket/internal/domain"
)

var safeID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ErrBadSessionID is returned for session ids that cannot be used as a file name or key.
var ErrBadSessionID = errors.New("invalid session id")

// FileStore keeps each session user as <dir>/<sid>.json.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store for one session id rooted at dir.
func NewFileStore(dir, sessionID string) (*FileStore, error) {
	if !safeID.MatchString(sessionID) {
		return nil, ErrBadSessionID
	}
	return &FileStore{path: filepath.Join(dir, sessionID+".json")}, nil
}

func (s *FileStore) Load(ctx context.Context) (*domain.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var u domain.SessionUser
	if err := json.NewDecoder(f).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", filepath.Base(s.path), err)
	}
	return &u, nil
}

// Save writes to a temp file and renames it over the old record so a crash
// never leaves a half-written session behind.
func (s *FileStore) Save(ctx context.Context, u domain.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return err
	}
	if err := json.NewEncoder(tmp).Encode(u); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
