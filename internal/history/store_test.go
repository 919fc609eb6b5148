// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cheshirecat-tools/chat-tui/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)

	user := model.NewUserMessage("hello <script>")
	bot := model.NewBotMessage("<strong>hi</strong>")
	if err := store.Append(user); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(bot); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := store.Load()
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	// Text and role survive a round-trip byte for byte.
	if got.Messages[0].Text != "hello <script>" || got.Messages[0].Role != model.RoleUser {
		t.Errorf("messages[0] = %+v", got.Messages[0])
	}
	if got.Messages[1].Text != "<strong>hi</strong>" || got.Messages[1].Role != model.RoleBot {
		t.Errorf("messages[1] = %+v", got.Messages[1])
	}
	if got.Messages[0].Timestamp != user.Timestamp {
		t.Errorf("timestamp changed: %d != %d", got.Messages[0].Timestamp, user.Timestamp)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	if got := store.Load(); got.Len() != 0 {
		t.Errorf("Load of empty store = %d messages", got.Len())
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), transcriptFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := store.Load(); got.Len() != 0 {
		t.Errorf("Load of corrupt store = %d messages, want 0", got.Len())
	}
	// The store stays usable after corruption.
	if err := store.Append(model.NewUserMessage("recovered")); err != nil {
		t.Fatalf("Append after corruption: %v", err)
	}
	if got := store.Load(); got.Len() != 1 {
		t.Errorf("Len after recovery = %d, want 1", got.Len())
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(model.NewUserMessage("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := store.Load(); got.Len() != 0 {
		t.Errorf("Len after Clear = %d", got.Len())
	}
	// Clearing an already-empty store is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("repeated Clear: %v", err)
	}
}

func TestStore_PrunesAtCap(t *testing.T) {
	store := newTestStore(t)
	transcript := model.Transcript{}
	for i := 0; i < model.MaxMessages; i++ {
		transcript.Append(model.NewUserMessage("old"))
	}
	store.mu.Lock()
	err := store.saveLocked(transcript)
	store.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Append(model.NewUserMessage("newest")); err != nil {
		t.Fatal(err)
	}
	got := store.Load()
	if got.Len() != model.MaxMessages {
		t.Errorf("Len = %d, want %d", got.Len(), model.MaxMessages)
	}
	last, _ := got.Last()
	if last.Text != "newest" {
		t.Errorf("last message = %q, want newest", last.Text)
	}
}

// =============================================================================
// WIDGET STATE TESTS
// =============================================================================

func TestStore_WidgetStateRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.WidgetState(); ok {
		t.Error("unset widget state reported as present")
	}

	if err := store.SetWidgetState(StateOpen); err != nil {
		t.Fatalf("SetWidgetState: %v", err)
	}
	if state, ok := store.WidgetState(); !ok || state != StateOpen {
		t.Errorf("WidgetState = %q, %v", state, ok)
	}

	if err := store.SetWidgetState(StateClosed); err != nil {
		t.Fatal(err)
	}
	if state, _ := store.WidgetState(); state != StateClosed {
		t.Errorf("WidgetState = %q, want closed", state)
	}

	if err := store.SetWidgetState("sideways"); err == nil {
		t.Error("invalid state accepted")
	}
}

func TestStore_LegacyHiddenMigration(t *testing.T) {
	store := newTestStore(t)
	legacyPath := filepath.Join(store.Dir(), legacyHiddenFile)
	if err := os.WriteFile(legacyPath, []byte("true"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, ok := store.WidgetState()
	if !ok || state != StateClosed {
		t.Errorf("migrated state = %q, %v; want closed", state, ok)
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Error("legacy flag file not removed")
	}
}

func TestStore_LegacyHiddenFalseIgnored(t *testing.T) {
	store := newTestStore(t)
	legacyPath := filepath.Join(store.Dir(), legacyHiddenFile)
	if err := os.WriteFile(legacyPath, []byte("false"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.WidgetState(); ok {
		t.Error("false legacy flag produced a state")
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Error("legacy flag file not removed")
	}
}

// =============================================================================
// USER IDENTITY TESTS
// =============================================================================

func TestStore_UserIDStable(t *testing.T) {
	store := newTestStore(t)

	first, err := store.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if first == "" {
		t.Fatal("empty user id")
	}
	second, err := store.UserID()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("user id not stable: %q != %q", first, second)
	}

	// A fresh store over the same directory reads the same id.
	again, err := NewStore(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	third, err := again.UserID()
	if err != nil {
		t.Fatal(err)
	}
	if third != first {
		t.Errorf("user id not persisted: %q != %q", third, first)
	}
}
