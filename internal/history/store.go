// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package history persists the conversation transcript and widget state on
// the local filesystem so a restart resumes exactly where the user left
// off. Corrupt or missing files never fail a load; they read as empty.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/cheshirecat-tools/chat-tui/internal/model"
	"github.com/cheshirecat-tools/chat-tui/internal/util"
)

// =============================================================================
// STORE
// =============================================================================

const (
	transcriptFile   = "messages.json"
	stateFile        = "widget_state"
	legacyHiddenFile = "widget_hidden"
	userIDFile       = "user_id"
)

// Widget states persisted across restarts.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Store persists transcript and widget state under one directory. All
// methods are safe for concurrent use.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Load reads the stored transcript. A missing or unparseable file yields an
// empty transcript, never an error, so startup always proceeds.
func (s *Store) Load() model.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() model.Transcript {
	data, err := os.ReadFile(filepath.Join(s.dir, transcriptFile))
	if err != nil {
		return model.Transcript{}
	}
	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return model.Transcript{}
	}
	return model.Transcript{Messages: messages}
}

// Append adds one message to the stored transcript, pruning the oldest
// entries past the transcript cap.
func (s *Store) Append(msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := s.loadLocked()
	transcript.Append(msg)
	return s.saveLocked(transcript)
}

// Clear removes the stored transcript.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, transcriptFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

func (s *Store) saveLocked(transcript model.Transcript) error {
	data, err := json.MarshalIndent(transcript.Messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := util.AtomicWriteFile(filepath.Join(s.dir, transcriptFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// =============================================================================
// WIDGET STATE
// =============================================================================

// WidgetState returns the persisted open/closed state. The second return is
// false when no state was ever saved, letting the caller apply the
// configured default. A legacy hidden flag is migrated on first read.
func (s *Store) WidgetState() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.migrateLegacyHiddenLocked()

	data, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if err != nil {
		return "", false
	}
	switch state := string(data); state {
	case StateOpen, StateClosed:
		return state, true
	default:
		return "", false
	}
}

// SetWidgetState persists the open/closed state.
func (s *Store) SetWidgetState(state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state != StateOpen && state != StateClosed {
		return fmt.Errorf("invalid widget state %q", state)
	}
	if err := util.AtomicWriteFile(filepath.Join(s.dir, stateFile), []byte(state), 0o644); err != nil {
		return fmt.Errorf("failed to write widget state: %w", err)
	}
	return nil
}

// migrateLegacyHiddenLocked converts the old boolean hidden flag to the
// current state file and removes it.
func (s *Store) migrateLegacyHiddenLocked() {
	legacyPath := filepath.Join(s.dir, legacyHiddenFile)
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return
	}
	if string(data) == "true" {
		_ = util.AtomicWriteFile(filepath.Join(s.dir, stateFile), []byte(StateClosed), 0o644)
	}
	_ = os.Remove(legacyPath)
}

// =============================================================================
// USER IDENTITY
// =============================================================================

// UserID returns the stable per-installation user id, generating and
// persisting one on first use.
func (s *Store) UserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, userIDFile)
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}

	id := uuid.NewString()
	if err := util.AtomicWriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist user id: %w", err)
	}
	return id, nil
}
