// Package loader implements the second pipeline stage: it reads one durable
// discovery object, validates its records, and upserts them into the article
// store. Loading is idempotent, so duplicate notifications for the same
// object are harmless.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"graftwatch/internal/articles"
	"graftwatch/internal/logger"
	"graftwatch/internal/models"
	"graftwatch/internal/objectstore"
)

// Run failure classifications.
var (
	// ErrObjectRead indicates the durable object could not be fetched.
	ErrObjectRead = errors.New("object not readable")
	// ErrBadFormat indicates the object is not a parseable record batch.
	ErrBadFormat = errors.New("object is not a record batch")
)

// maxConcurrentUpserts bounds in-flight store writes per batch.
const maxConcurrentUpserts = 5

// Loader moves records from the object store into the article store.
type Loader struct {
	objects objectstore.Store
	store   articles.Store
	logger  *logger.Logger
}

// New creates a loader.
func New(objects objectstore.Store, store articles.Store, log *logger.Logger) *Loader {
	return &Loader{
		objects: objects,
		store:   store,
		logger:  log,
	}
}

// Summary reports the outcome of loading one object.
type Summary struct {
	Inserted int // records that created a new article
	Updated  int // records merged into an existing article
	Rejected int // records that failed validation and were skipped
	Failed   int // records whose store write failed
}

// Outcome classifies the run as success, partial, or failed.
func (s *Summary) Outcome() string {
	switch {
	case s.Rejected == 0 && s.Failed == 0:
		return "success"
	case s.Inserted+s.Updated > 0:
		return "partial"
	default:
		return "failed"
	}
}

// String returns a one-line summary.
func (s *Summary) String() string {
	return fmt.Sprintf("Summary{Inserted: %d, Updated: %d, Rejected: %d, Failed: %d}",
		s.Inserted, s.Updated, s.Rejected, s.Failed)
}

// Load processes one object. The batch is best-effort: a rejected or failed
// record never aborts the rest, and records already committed stay committed.
// The key is treated as an opaque locator.
func (l *Loader) Load(ctx context.Context, key string) (*Summary, error) {
	log := l.logger.With("key", key)

	data, err := l.objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrObjectRead, err)
	}

	// Decode the envelope first so one malformed entry rejects that entry
	// rather than failing the whole object.
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	summary := &Summary{}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, maxConcurrentUpserts)
	)

	for i, raw := range entries {
		rec, err := decodeRecord(raw)
		if err != nil {
			log.Warn("record rejected", "index", i, "reason", err)

			summary.Rejected++

			continue
		}

		wg.Add(1)

		go func(rec models.Record, index int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			created, err := l.store.Upsert(ctx, rec)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				log.Error("upsert failed", "index", index, "url", rec.URL, "error", err)

				summary.Failed++

				return
			}

			if created {
				summary.Inserted++
			} else {
				summary.Updated++
			}
		}(rec, i)
	}

	wg.Wait()

	log.Info("object loaded",
		"inserted", summary.Inserted, "updated", summary.Updated,
		"rejected", summary.Rejected, "failed", summary.Failed,
		"outcome", summary.Outcome())

	return summary, nil
}
