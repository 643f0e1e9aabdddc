// Package store persists the library index and answers searches over it.
package store

import (
	"errors"

	"musicindex/internal/library"
)

// ErrNotAvailable is returned by backends missing from this build.
var ErrNotAvailable = errors.New("SQLite backend is not available in non-CGO builds; use backend = \"bleve\" or rebuild with CGO_ENABLED=1")

// Datastore is the interface that any search backend must implement.
type Datastore interface {
	// Initialize prepares the datastore (e.g., create tables, open index).
	Initialize(path string) error

	// Close cleans up resources.
	Close() error

	// Count returns the total number of stored tracks.
	Count() (int, error)

	// Search returns the tracks matching the query string.
	// An empty query returns every track.
	Search(query string) ([]library.Track, error)

	// ResourceURIs returns the resource URI of every stored track.
	ResourceURIs() ([]string, error)

	// Clear removes all data from the store.
	Clear() error
}
