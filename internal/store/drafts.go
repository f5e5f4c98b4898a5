package store

import (
	"time"

	"qaproof/internal/logging"
	"qaproof/internal/qa"
)

// The draft cache mirrors the last draft saved per task record, so the
// collaboration editor can show "has draft" markers and resume text without
// a round trip. The server copy stays authoritative.

// CacheDraft stores or replaces the cached draft for one task record.
func (s *LocalStore) CacheDraft(taskID string, draft qa.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedAt := time.Now().UTC()
	if draft.LastSavedAt != nil {
		savedAt = *draft.LastSavedAt
	}
	_, err := s.db.Exec(
		`INSERT INTO draft_cache (task_id, qa_pair_id, draft_prompt, draft_completion, is_auto_saved, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id, qa_pair_id) DO UPDATE SET
			draft_prompt = excluded.draft_prompt,
			draft_completion = excluded.draft_completion,
			is_auto_saved = excluded.is_auto_saved,
			saved_at = excluded.saved_at`,
		taskID, draft.QAPairID, draft.DraftPrompt, draft.DraftCompletion, draft.IsAutoSaved, savedAt,
	)
	if err != nil {
		logging.StoreError("cache draft %s/%s: %v", taskID, draft.QAPairID, err)
		return err
	}
	logging.StoreDebug("cached draft %s/%s (auto=%v)", taskID, draft.QAPairID, draft.IsAutoSaved)
	return nil
}

// CachedDrafts returns the cached drafts for a task keyed by record id.
func (s *LocalStore) CachedDrafts(taskID string) (map[string]qa.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT qa_pair_id, draft_prompt, draft_completion, is_auto_saved, saved_at
		 FROM draft_cache WHERE task_id = ?`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := make(map[string]qa.Draft)
	for rows.Next() {
		var d qa.Draft
		var savedAt time.Time
		if err := rows.Scan(&d.QAPairID, &d.DraftPrompt, &d.DraftCompletion, &d.IsAutoSaved, &savedAt); err != nil {
			continue
		}
		d.LastSavedAt = &savedAt
		drafts[d.QAPairID] = d
	}
	return drafts, rows.Err()
}

// ClearDraftCache drops all cached drafts for a task, used after submit.
func (s *LocalStore) ClearDraftCache(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM draft_cache WHERE task_id = ?", taskID)
	return err
}
