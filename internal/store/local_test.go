package store

import (
	"testing"
	"time"

	"qaproof/internal/kv"
	"qaproof/internal/qa"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewLocalStore(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	for _, table := range []string{"kv_state", "hidden_items", "draft_cache"} {
		if _, ok := stats[table]; !ok {
			t.Errorf("stats missing table: %s", table)
		}
	}
}

func TestKVInterface(t *testing.T) {
	s := newTestStore(t)

	var _ kv.Store = s

	if _, err := s.Get("missing"); err != kv.ErrNotFound {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Set(kv.KeyGuestSession, []byte(`{"records":[]}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(kv.KeyGuestSession)
	if err != nil || string(got) != `{"records":[]}` {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := s.Set(kv.KeyGuestSession, []byte(`{}`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _ = s.Get(kv.KeyGuestSession)
	if string(got) != "{}" {
		t.Errorf("overwrite: got %q", got)
	}

	keys, err := s.Keys()
	if err != nil || len(keys) != 1 || keys[0] != kv.KeyGuestSession {
		t.Errorf("Keys = %v, %v", keys, err)
	}

	if err := s.Delete(kv.KeyGuestSession); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(kv.KeyGuestSession); err != kv.ErrNotFound {
		t.Errorf("Get after delete: err = %v", err)
	}
}

func TestToggleHidden(t *testing.T) {
	s := newTestStore(t)

	hidden, err := s.ToggleHidden("u1", "f1", "rec-1")
	if err != nil || !hidden {
		t.Fatalf("first toggle = %v, %v; want hidden", hidden, err)
	}

	ids, err := s.HiddenItems("u1", "f1")
	if err != nil || len(ids) != 1 || ids[0] != "rec-1" {
		t.Fatalf("HiddenItems = %v, %v", ids, err)
	}

	// Toggling again restores the original state.
	hidden, err = s.ToggleHidden("u1", "f1", "rec-1")
	if err != nil || hidden {
		t.Fatalf("second toggle = %v, %v; want unhidden", hidden, err)
	}
	ids, _ = s.HiddenItems("u1", "f1")
	if len(ids) != 0 {
		t.Errorf("set should be empty after double toggle: %v", ids)
	}
}

func TestHiddenSetsAreScoped(t *testing.T) {
	s := newTestStore(t)

	s.ToggleHidden("u1", "f1", "rec-1")
	s.ToggleHidden("u1", "f2", "rec-1")
	s.ToggleHidden("u2", "f1", "rec-2")

	ids, _ := s.HiddenItems("u1", "f1")
	if len(ids) != 1 || ids[0] != "rec-1" {
		t.Errorf("u1/f1 = %v", ids)
	}
	ids, _ = s.HiddenItems("u2", "f1")
	if len(ids) != 1 || ids[0] != "rec-2" {
		t.Errorf("u2/f1 = %v", ids)
	}

	if err := s.ClearHidden("u1", "f1"); err != nil {
		t.Fatalf("ClearHidden failed: %v", err)
	}
	ids, _ = s.HiddenItems("u1", "f1")
	if len(ids) != 0 {
		t.Errorf("u1/f1 after clear = %v", ids)
	}
	// Other scopes untouched.
	ids, _ = s.HiddenItems("u1", "f2")
	if len(ids) != 1 {
		t.Errorf("u1/f2 after clear of u1/f1 = %v", ids)
	}
}

func TestDraftCache(t *testing.T) {
	s := newTestStore(t)

	saved := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := s.CacheDraft("task-1", qa.Draft{
		QAPairID:        "rec-1",
		DraftPrompt:     "edited prompt",
		DraftCompletion: "edited completion",
		IsAutoSaved:     true,
		LastSavedAt:     &saved,
	})
	if err != nil {
		t.Fatalf("CacheDraft failed: %v", err)
	}

	// Replacing keeps a single entry per record.
	err = s.CacheDraft("task-1", qa.Draft{
		QAPairID:        "rec-1",
		DraftPrompt:     "edited prompt v2",
		DraftCompletion: "edited completion v2",
	})
	if err != nil {
		t.Fatalf("CacheDraft replace failed: %v", err)
	}

	drafts, err := s.CachedDrafts("task-1")
	if err != nil {
		t.Fatalf("CachedDrafts failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 cached draft, got %d", len(drafts))
	}
	d := drafts["rec-1"]
	if d.DraftPrompt != "edited prompt v2" || d.IsAutoSaved {
		t.Errorf("cached draft = %+v", d)
	}

	if err := s.ClearDraftCache("task-1"); err != nil {
		t.Fatalf("ClearDraftCache failed: %v", err)
	}
	drafts, _ = s.CachedDrafts("task-1")
	if len(drafts) != 0 {
		t.Errorf("cache should be empty after clear: %v", drafts)
	}
}
