//go:generate mockgen -destination=./mocks/download.go . Manager
package download

import (
	"context"
	"net/url"
	"time"
)

// Manager downloads remote resources (repository metadata documents and
// command-line packages) with integrity verification and freshness checks.
type Manager interface {
	// FetchAll downloads all items and returns a map from Item.ID to the
	// absolute local file path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item to a deterministic location within
	// opts.Dir and returns the absolute local file path. When the item
	// carries an IfModifiedSince stamp and the server reports the resource
	// unchanged, Fetch returns errors.ErrNotModified.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item is one remote resource to download.
type Item struct {
	ID       string   // stable identifier, unique within a batch
	URL      *url.URL // source URL
	Checksum string   // optional hex SHA-256, verified when set
	Filename string   // optional preferred filename, derived when empty
	// IfModifiedSince makes the request conditional; the zero value
	// fetches unconditionally.
	IfModifiedSince time.Time
}

// Options control download behavior.
type Options struct {
	Dir         string // destination directory, must be absolute
	Concurrency int    // parallel downloads, defaulted when <= 0
}
