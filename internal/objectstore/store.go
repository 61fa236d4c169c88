// Package objectstore provides the durable object store the collector writes
// discovery runs to and the loader reads them from. Objects are immutable
// JSON blobs; keys are opaque locators to everything except the key builder.
package objectstore

import (
	"context"
	"errors"
	"path"
	"time"

	"graftwatch/pkg/urlutil"
)

// ErrObjectNotFound indicates the requested key does not exist in the store.
var ErrObjectNotFound = errors.New("object not found")

// Store is an immutable, externally addressable blob store. Put writes one
// whole object; Get fetches one whole object.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key builds the partitioned object key for one discovery run:
// {prefix}/{name}/{yyyymmdd}/{yyyymmdd_hhmmss}.json. Consumers must treat the
// result as opaque; only the writer relies on its structure.
func Key(prefix, name string, t time.Time) string {
	t = t.UTC()

	return path.Join(
		prefix,
		urlutil.SafeSegment(name),
		t.Format("20060102"),
		t.Format("20060102_150405")+".json",
	)
}
