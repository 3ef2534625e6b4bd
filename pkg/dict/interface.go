package dict

import "errors"

var (
	ErrNotFound = errors.New("key not found in dictionary")
)

// ID is an interned symbol. Zero is never assigned.
type ID uint64

// Dictionary maps symbols to stable integer IDs and back.
// Both Memory and Encoder implement this interface.
type Dictionary interface {
	// GetOrCreateID gets the ID for a string, creating a new ID if it doesn't exist.
	GetOrCreateID(s string) (ID, error)

	// GetIDs gets IDs for multiple strings in a batch, creating new IDs as needed.
	GetIDs(keys []string) ([]ID, error)

	// GetID gets the ID for a string without creating a new one.
	GetID(s string) (ID, error)

	// GetString gets the string for an ID.
	GetString(id ID) (string, error)

	// Close flushes any pending state and releases resources.
	Close() error
}
