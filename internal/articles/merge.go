package articles

import (
	"sort"
	"time"

	"graftwatch/internal/models"
)

// mergeRecord applies the merge rules to a stored article and an incoming
// record for the same URL:
//   - individuals_mentioned becomes the sorted union of both sets;
//   - title, content, source, and keywords_used take the incoming value only
//     when it is non-empty;
//   - sentiment_score and published_at take the incoming value only when it
//     is non-nil, so an incoming null never erases a known value;
//   - discovered_at reflects the most recent discovery.
//
// The SQLite store runs this inside its upsert transaction; the Postgres
// store expresses the same rules in its single-statement upsert.
func mergeRecord(stored models.Article, in models.Record, loadedAt time.Time) models.Article {
	merged := stored

	if in.Title != "" {
		merged.Title = in.Title
	}

	if in.Content != "" {
		merged.Content = in.Content
	}

	if in.Source != "" {
		merged.Source = in.Source
	}

	if in.SentimentScore != nil {
		merged.SentimentScore = in.SentimentScore
	}

	if in.PublishedAt != nil {
		merged.PublishedAt = in.PublishedAt
	}

	if !in.DiscoveredAt.IsZero() {
		merged.DiscoveredAt = in.DiscoveredAt
	}

	merged.IndividualsMentioned = unionSorted(stored.IndividualsMentioned, in.IndividualsMentioned)

	if len(in.KeywordsUsed) > 0 {
		merged.KeywordsUsed = in.KeywordsUsed
	}

	merged.LoadedAt = loadedAt

	return merged
}

// unionSorted returns the sorted set union of two string slices.
func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))

	for _, s := range a {
		seen[s] = true
	}

	for _, s := range b {
		seen[s] = true
	}

	union := make([]string, 0, len(seen))
	for s := range seen {
		union = append(union, s)
	}

	sort.Strings(union)

	return union
}

// newArticle builds the initial article row for a first-time URL.
func newArticle(rec models.Record, loadedAt time.Time) models.Article {
	return models.Article{
		URL:                  rec.URL,
		Title:                rec.Title,
		Content:              rec.Content,
		Source:               rec.Source,
		SentimentScore:       rec.SentimentScore,
		PublishedAt:          rec.PublishedAt,
		DiscoveredAt:         rec.DiscoveredAt,
		IndividualsMentioned: unionSorted(rec.IndividualsMentioned, nil),
		KeywordsUsed:         rec.KeywordsUsed,
		LoadedAt:             loadedAt,
	}
}
