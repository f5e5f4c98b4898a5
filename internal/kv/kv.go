// Package kv provides the key-value store abstraction behind all client-side
// persistence: the bearer token, guest session snapshots, and per-resource
// hidden-item sets. Backends can be swapped (in-memory, JSON files, SQLite)
// without touching the callers.
package kv

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the stored value, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores or replaces the value for the key.
	Set(key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists all stored keys.
	Keys() ([]string, error)
}

// Well-known keys. Hidden-item sets additionally encode the owning user and
// resource, so they survive reloads without replacing server state.
const (
	KeyAuthToken    = "auth_token"
	KeyGuestSession = "guest_session"
)

// HiddenItemsKey builds the per-(user, resource) key for a confirmed-item
// set. Guest mode uses the empty user id.
func HiddenItemsKey(userID, resourceID string) string {
	return "hidden_" + userID + "_" + resourceID
}
