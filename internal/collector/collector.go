// Package collector implements discovery: it queries the search provider for
// one monitored individual, filters and normalizes the hits, and persists the
// run as one durable object.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"graftwatch/internal/config"
	"graftwatch/internal/logger"
	"graftwatch/internal/models"
	"graftwatch/internal/objectstore"
	"graftwatch/internal/search"
	"graftwatch/pkg/urlutil"
)

// Run failure classifications.
var (
	// ErrSearchFailed indicates a provider query failed after exhausting the
	// retry budget; no object is written.
	ErrSearchFailed = errors.New("search provider query failed")
	// ErrPersistFailed indicates the durable object write failed; the caller
	// may retry the whole run.
	ErrPersistFailed = errors.New("object write failed")
)

// maxConcurrentQueries bounds the per-keyword fan-out against the provider.
const maxConcurrentQueries = 4

// Provider is the slice of the search client the collector needs.
type Provider interface {
	Search(ctx context.Context, q search.Query) ([]search.Hit, error)
}

// Collector discovers articles for one subject per run.
type Collector struct {
	provider      Provider
	store         objectstore.Store
	logger        *logger.Logger
	prefix        string
	queryTemplate string
	now           func() time.Time
}

// New creates a collector writing run objects under the given key prefix.
func New(provider Provider, store objectstore.Store, prefix, queryTemplate string, log *logger.Logger) *Collector {
	if queryTemplate == "" {
		queryTemplate = config.DefaultQueryTemplate
	}

	return &Collector{
		provider:      provider,
		store:         store,
		logger:        log,
		prefix:        prefix,
		queryTemplate: queryTemplate,
		now:           time.Now,
	}
}

// RunResult summarizes one discovery run.
type RunResult struct {
	RunID    string
	Key      string
	Fetched  int // raw hits returned by the provider
	Filtered int // hits dropped by the domain allowlist
	Written  int // records in the persisted object
}

// Collect runs discovery for one subject: one provider query per keyword,
// domain filtering, URL dedup, and a single object write. An empty result set
// is still written; it is a valid outcome, not an error.
func (c *Collector) Collect(ctx context.Context, subject config.Subject) (*RunResult, error) {
	runID := uuid.NewString()
	log := c.logger.With("run_id", runID, "individual", subject.Name)
	startedAt := c.now().UTC()

	hits, err := c.queryKeywords(ctx, subject, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	records, filtered := c.normalize(hits, subject, startedAt, log)

	key := objectstore.Key(c.prefix, subject.Name, startedAt)

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	if err := c.store.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	log.Info("discovery run written",
		"key", key, "fetched", len(hits), "filtered", filtered, "written", len(records))

	return &RunResult{
		RunID:    runID,
		Key:      key,
		Fetched:  len(hits),
		Filtered: filtered,
		Written:  len(records),
	}, nil
}

// queryKeywords fans out one provider query per keyword and unions the hits.
// Any keyword failing after the client's own retry budget fails the run.
func (c *Collector) queryKeywords(ctx context.Context, subject config.Subject, log *logger.Logger) ([]search.Hit, error) {
	var (
		mu   sync.Mutex
		hits []search.Hit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)

	for _, keyword := range subject.Keywords {
		keyword := keyword
		g.Go(func() error {
			query := c.buildQuery(keyword, subject.Name)
			log.Debug("querying provider", "keyword", keyword, "query", query)

			results, err := c.provider.Search(gctx, search.Query{
				Text:           query,
				IncludeDomains: subject.AllowedDomains,
			})
			if err != nil {
				return fmt.Errorf("keyword %q: %w", keyword, err)
			}

			mu.Lock()
			hits = append(hits, results...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return hits, nil
}

// buildQuery expands the query template for one keyword.
func (c *Collector) buildQuery(keyword, individual string) string {
	query := strings.ReplaceAll(c.queryTemplate, "{keyword}", keyword)

	return strings.ReplaceAll(query, "{individual}", individual)
}

// normalize filters hits by the domain allowlist, collapses duplicate URLs
// (preferring the variant with a sentiment score), and maps the survivors to
// records. Output is sorted by URL for stable objects.
func (c *Collector) normalize(hits []search.Hit, subject config.Subject, discoveredAt time.Time, log *logger.Logger) ([]models.Record, int) {
	allowed := make(map[string]bool, len(subject.AllowedDomains))
	for _, d := range subject.AllowedDomains {
		allowed[strings.ToLower(strings.TrimPrefix(d, "www."))] = true
	}

	records := make([]models.Record, 0, len(hits))
	index := make(map[string]int, len(hits))
	filtered := 0

	for _, hit := range hits {
		domain := urlutil.Domain(hit.URL)
		if !allowed[domain] {
			filtered++

			log.Debug("hit outside domain allowlist", "url", hit.URL, "domain", domain)

			continue
		}

		rec := c.toRecord(hit, subject, domain, discoveredAt, log)

		if i, seen := index[rec.URL]; seen {
			if records[i].SentimentScore == nil && rec.SentimentScore != nil {
				records[i] = rec
			}

			continue
		}

		index[rec.URL] = len(records)
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].URL < records[j].URL })

	return records, filtered
}

// toRecord maps a provider hit to a record for this subject.
func (c *Collector) toRecord(hit search.Hit, subject config.Subject, domain string, discoveredAt time.Time, log *logger.Logger) models.Record {
	published := parsePublished(hit.PublishedDate)
	if published == nil && hit.PublishedDate != "" {
		log.Warn("could not parse published date", "url", hit.URL, "published_date", hit.PublishedDate)
	}

	if published == nil {
		// Provider omitted the date; fall back to discovery time
		published = &discoveredAt
	}

	return models.Record{
		URL:                  hit.URL,
		Title:                hit.Title,
		Content:              hit.Content,
		Source:               domain,
		SentimentScore:       hit.Score,
		PublishedAt:          published,
		DiscoveredAt:         discoveredAt,
		IndividualsMentioned: []string{subject.Name},
		KeywordsUsed:         subject.Keywords,
	}
}

// publishedFormats are the date layouts providers have been seen returning.
var publishedFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

func parsePublished(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	for _, layout := range publishedFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()

			return &t
		}
	}

	return nil
}
