// Package articles persists discovered articles keyed by URL. The store's
// single consistency obligation is the upsert: insert-if-absent, otherwise
// merge, as one atomic operation with respect to concurrent loads of the same
// URL.
package articles

import (
	"context"
	"errors"

	"graftwatch/internal/models"
)

// ErrNotFound indicates no article exists for the given URL.
var ErrNotFound = errors.New("article not found")

// Store is the persistent article store the loader writes to.
type Store interface {
	// Upsert inserts the record as a new article or merges it into the
	// existing article with the same URL. It reports whether a new row was
	// created. The operation is atomic under concurrent upserts of one URL.
	Upsert(ctx context.Context, rec models.Record) (created bool, err error)

	// Get fetches one article by URL, or ErrNotFound.
	Get(ctx context.Context, url string) (*models.Article, error)

	// EnsureSchema creates or upgrades the backing table.
	EnsureSchema(ctx context.Context) error

	Close() error
}
