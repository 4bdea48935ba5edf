package store

// CursorStore persists integer offsets under well-known keys.
type CursorStore interface {
	// Get returns the offset stored under key and whether it exists.
	Get(key string) (int, bool, error)

	// Set creates or replaces the offset stored under key.
	Set(key string, offset int) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
