package banter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ThreadStore is the durable single-slot cell holding the current thread id.
// It is read at mount and written only through the ThreadManager.
type ThreadStore interface {
	Load() string
	Save(id string) error
	Clear() error
}

// FileThreadStore persists the thread id as a small JSON file in the config
// directory, so the same machine resumes into the same thread.
type FileThreadStore struct {
	path string
}

// NewFileThreadStore creates a file-backed store under dir. An empty dir
// defaults to ~/.banter.
func NewFileThreadStore(dir string) *FileThreadStore {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".banter")
	}
	return &FileThreadStore{path: filepath.Join(dir, "thread.json")}
}

type threadSlot struct {
	ThreadID string `json:"thread_id"`
}

// Load returns the persisted id, or "" when none is stored.
func (s *FileThreadStore) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var slot threadSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return ""
	}
	return slot.ThreadID
}

// Save writes the id through to disk.
func (s *FileThreadStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, _ := json.Marshal(threadSlot{ThreadID: id})
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes the stored id.
func (s *FileThreadStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemThreadStore is an in-memory ThreadStore.
type MemThreadStore struct {
	id string
}

func (s *MemThreadStore) Load() string         { return s.id }
func (s *MemThreadStore) Save(id string) error { s.id = id; return nil }
func (s *MemThreadStore) Clear() error         { s.id = ""; return nil }

// ThreadManager owns the notion of "current thread": it persists the id
// across sessions, verifies it still exists remotely, and mints a new one
// when the persisted id is absent or stale.
type ThreadManager struct {
	api    *Client
	store  ThreadStore
	logger zerolog.Logger
}

// NewThreadManager creates a manager over the given client and store.
func NewThreadManager(api *Client, store ThreadStore, logger zerolog.Logger) *ThreadManager {
	return &ThreadManager{api: api, store: store, logger: logger}
}

// Resolve returns the persisted thread id without validating it.
func (m *ThreadManager) Resolve() string {
	return m.store.Load()
}

// Check reports whether a thread still exists remotely. A failed check is
// an error, distinct from a confirmed not-found, so callers never discard
// durable state over a transient outage.
func (m *ThreadManager) Check(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return m.api.ThreadExists(ctx, id)
}

// Verify checks that a thread still exists remotely, collapsing check
// failures to false. Callers that mutate the persisted slot must use Check
// so an outage is not mistaken for a missing thread.
func (m *ThreadManager) Verify(ctx context.Context, id string) bool {
	exists, err := m.Check(ctx, id)
	if err != nil {
		m.logger.Debug().Err(err).Str("thread", id).Msg("thread verification failed")
		return false
	}
	return exists
}

// Create asks the remote service to mint a new thread and persists its id.
func (m *ThreadManager) Create(ctx context.Context, title string) (string, error) {
	id, err := m.api.CreateThread(ctx, title)
	if err != nil {
		return "", &ThreadCreationError{Err: err}
	}
	if id == "" {
		return "", &ThreadCreationError{}
	}
	if err := m.Persist(id); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist thread id")
	}
	return id, nil
}

// Persist writes the id through to durable storage; "" clears it.
func (m *ThreadManager) Persist(id string) error {
	if id == "" {
		return m.store.Clear()
	}
	return m.store.Save(id)
}

// Ensure resolves a usable thread id: the persisted id when it still exists
// remotely, otherwise a freshly minted one. Replacing a confirmed-stale id
// is an expected recovery path and produces no user-visible error; a failed
// check is returned as-is and leaves the persisted id untouched.
func (m *ThreadManager) Ensure(ctx context.Context, title string) (string, error) {
	if id := m.Resolve(); id != "" {
		exists, err := m.Check(ctx, id)
		if err != nil {
			return "", err
		}
		if exists {
			return id, nil
		}
		m.logger.Info().Str("thread", id).Msg("persisted thread is stale, minting a new one")
		if err := m.Persist(""); err != nil {
			m.logger.Warn().Err(err).Msg("failed to clear stale thread id")
		}
	}
	return m.Create(ctx, title)
}
