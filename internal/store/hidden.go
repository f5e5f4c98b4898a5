package store

import (
	"qaproof/internal/logging"
)

// Hidden-item sets record which QA pairs a reviewer has marked
// correct/confirmed for one resource (a file or a task). Membership only
// drives the display filter; it never mutates record content.

// ToggleHidden flips membership of recordID in the (userID, resourceID) set
// and reports whether the record is hidden afterwards.
func (s *LocalStore) ToggleHidden(userID, resourceID, recordID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM hidden_items WHERE user_id = ? AND resource_id = ? AND record_id = ?",
		userID, resourceID, recordID,
	).Scan(&one)

	if err == nil {
		_, err = s.db.Exec(
			"DELETE FROM hidden_items WHERE user_id = ? AND resource_id = ? AND record_id = ?",
			userID, resourceID, recordID,
		)
		if err != nil {
			logging.StoreError("unhide %s/%s/%s: %v", userID, resourceID, recordID, err)
			return true, err
		}
		logging.StoreDebug("unhid %s in %s", recordID, resourceID)
		return false, nil
	}

	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO hidden_items (user_id, resource_id, record_id) VALUES (?, ?, ?)",
		userID, resourceID, recordID,
	)
	if err != nil {
		logging.StoreError("hide %s/%s/%s: %v", userID, resourceID, recordID, err)
		return false, err
	}
	logging.StoreDebug("hid %s in %s", recordID, resourceID)
	return true, nil
}

// RemoveHidden drops recordID from the set; a deleted record cannot remain
// confirmed.
func (s *LocalStore) RemoveHidden(userID, resourceID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM hidden_items WHERE user_id = ? AND resource_id = ? AND record_id = ?",
		userID, resourceID, recordID,
	)
	return err
}

// HiddenItems returns the record ids in the (userID, resourceID) set.
func (s *LocalStore) HiddenItems(userID, resourceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT record_id FROM hidden_items WHERE user_id = ? AND resource_id = ? ORDER BY created_at",
		userID, resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearHidden empties the (userID, resourceID) set, used when a file is
// re-opened or a session is cleared.
func (s *LocalStore) ClearHidden(userID, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM hidden_items WHERE user_id = ? AND resource_id = ?",
		userID, resourceID,
	)
	return err
}
