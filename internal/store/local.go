// Package store implements the SQLite-backed local state store. It plays
// the role browser storage plays for the web client: bearer token and guest
// session snapshots (through the kv.Store interface), per-(user, resource)
// hidden-item sets, and a cache of the last drafts saved in collaboration
// mode.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"qaproof/internal/kv"
	"qaproof/internal/logging"
)

// LocalStore wraps a single-writer SQLite connection. All mutating methods
// take the write lock; reads share the read lock.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

var _ kv.Store = (*LocalStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS hidden_items (
		user_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, resource_id, record_id)
	);

	CREATE TABLE IF NOT EXISTS draft_cache (
		task_id TEXT NOT NULL,
		qa_pair_id TEXT NOT NULL,
		draft_prompt TEXT NOT NULL,
		draft_completion TEXT NOT NULL,
		is_auto_saved INTEGER NOT NULL DEFAULT 0,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (task_id, qa_pair_id)
	);

	CREATE INDEX IF NOT EXISTS idx_hidden_resource
		ON hidden_items(user_id, resource_id);
`

// NewLocalStore initializes the SQLite database at the given path. Use
// ":memory:" for an ephemeral store.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("initializing local store at %s", path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set synchronous=NORMAL: %v", err)
	}

	s := &LocalStore{db: db, dbPath: path}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.StoreDebug("schema initialized")
	return s, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get implements kv.Store.
func (s *LocalStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		logging.StoreError("get %s: %v", key, err)
		return nil, err
	}
	return value, nil
}

// Set implements kv.Store.
func (s *LocalStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		logging.StoreError("set %s: %v", key, err)
		return err
	}
	logging.StoreDebug("set %s (%d bytes)", key, len(value))
	return nil
}

// Delete implements kv.Store.
func (s *LocalStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM kv_state WHERE key = ?", key); err != nil {
		logging.StoreError("delete %s: %v", key, err)
		return err
	}
	return nil
}

// Keys implements kv.Store.
func (s *LocalStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT key FROM kv_state ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Stats returns row counts per table, used by tests and the doctor command.
func (s *LocalStore) Stats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, table := range []string{"kv_state", "hidden_items", "draft_cache"} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}
