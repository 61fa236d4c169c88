package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"graftwatch/internal/articles"
	"graftwatch/internal/collector"
	"graftwatch/internal/config"
	"graftwatch/internal/loader"
	"graftwatch/internal/logger"
	"graftwatch/internal/objectstore"
	"graftwatch/internal/search"
)

type providerResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Score         *float64 `json:"score,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
}

// newProviderServer fakes the search provider: it answers every query with
// the hits registered for the individual named in the query text.
func newProviderServer(t *testing.T, hitsByName map[string][]providerResult) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			APIKey string `json:"api_key"`
			Query  string `json:"query"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Provider received bad request: %v", err)
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		if req.APIKey == "" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		var results []providerResult

		for name, hits := range hitsByName {
			if strings.Contains(req.Query, name) {
				results = hits

				break
			}
		}

		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

func newPipeline(t *testing.T, endpoint string) (*collector.Collector, *loader.Loader, *articles.SQLiteStore) {
	t.Helper()

	log := logger.NewLogger("error")

	searchCfg := &config.SearchConfig{
		Endpoint:          endpoint,
		APIKeyEnv:         "TEST_API_KEY",
		SearchDepth:       "advanced",
		MaxResults:        20,
		RequestsPerSecond: 1000,
		Burst:             100,
	}
	retry := &config.RetryPolicy{
		MaxAttempts:       2,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 2.0,
		TimeoutSec:        5,
	}

	client := search.NewClient(searchCfg, retry, "test-key", log)

	objects, err := objectstore.NewFSStore(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatalf("Failed to create object store: %v", err)
	}

	store, err := articles.NewSQLiteStore(filepath.Join(t.TempDir(), "articles.db"))
	if err != nil {
		t.Fatalf("Failed to create article store: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	c := collector.New(client, objects, "discoveries", "", log)
	ld := loader.New(objects, store, log)

	return c, ld, store
}

func TestPipeline_CollectThenLoad(t *testing.T) {
	score := 0.85

	server := newProviderServer(t, map[string][]providerResult{
		"Senzo Mchunu": {
			{URL: "https://news24.com/tender-probe", Title: "Tender probe", Content: "body", Score: &score, PublishedDate: "2026-01-10"},
			{URL: "https://mg.co.za/follow-up", Title: "Follow up"},
			{URL: "https://tabloid.example.com/gossip", Title: "Gossip"},
		},
	})
	defer server.Close()

	c, ld, store := newPipeline(t, server.URL)
	ctx := context.Background()

	subject := config.Subject{
		Name:           "Senzo Mchunu",
		Keywords:       []string{"corruption"},
		AllowedDomains: []string{"news24.com", "mg.co.za"},
		Enabled:        true,
	}

	result, err := c.Collect(ctx, subject)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if result.Written != 2 || result.Filtered != 1 {
		t.Fatalf("Unexpected collect result: %+v", result)
	}

	summary, err := ld.Load(ctx, result.Key)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if summary.Inserted != 2 || summary.Outcome() != "success" {
		t.Fatalf("Unexpected load summary: %s", summary)
	}

	art, err := store.Get(ctx, "https://news24.com/tender-probe")
	if err != nil {
		t.Fatalf("Article not stored: %v", err)
	}

	if art.Title != "Tender probe" || art.Source != "news24.com" {
		t.Errorf("Unexpected article: %+v", art)
	}

	if art.SentimentScore == nil || *art.SentimentScore != 0.85 {
		t.Errorf("Sentiment lost in transit: %v", art.SentimentScore)
	}

	if !reflect.DeepEqual(art.IndividualsMentioned, []string{"Senzo Mchunu"}) {
		t.Errorf("Unexpected individuals: %v", art.IndividualsMentioned)
	}
}

func TestPipeline_RepeatLoadIsIdempotent(t *testing.T) {
	server := newProviderServer(t, map[string][]providerResult{
		"Senzo Mchunu": {
			{URL: "https://news24.com/a", Title: "A"},
		},
	})
	defer server.Close()

	c, ld, store := newPipeline(t, server.URL)
	ctx := context.Background()

	subject := config.Subject{
		Name:           "Senzo Mchunu",
		Keywords:       []string{"corruption"},
		AllowedDomains: []string{"news24.com"},
		Enabled:        true,
	}

	result, err := c.Collect(ctx, subject)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if _, err := ld.Load(ctx, result.Key); err != nil {
		t.Fatalf("First load returned error: %v", err)
	}

	second, err := ld.Load(ctx, result.Key)
	if err != nil {
		t.Fatalf("Second load returned error: %v", err)
	}

	if second.Inserted != 0 || second.Updated != 1 {
		t.Fatalf("Repeat load not idempotent: %s", second)
	}

	art, err := store.Get(ctx, "https://news24.com/a")
	if err != nil {
		t.Fatalf("Article not stored: %v", err)
	}

	if len(art.IndividualsMentioned) != 1 {
		t.Errorf("Repeat load duplicated individuals: %v", art.IndividualsMentioned)
	}
}

func TestPipeline_TwoSubjectsSameArticleMerge(t *testing.T) {
	server := newProviderServer(t, map[string][]providerResult{
		"Senzo Mchunu": {
			{URL: "https://news24.com/shared", Title: "Shared story"},
		},
		"Jacob Zuma": {
			{URL: "https://news24.com/shared", Title: "Shared story"},
		},
	})
	defer server.Close()

	c, ld, store := newPipeline(t, server.URL)
	ctx := context.Background()

	for _, name := range []string{"Senzo Mchunu", "Jacob Zuma"} {
		subject := config.Subject{
			Name:           name,
			Keywords:       []string{"corruption"},
			AllowedDomains: []string{"news24.com"},
			Enabled:        true,
		}

		result, err := c.Collect(ctx, subject)
		if err != nil {
			t.Fatalf("Collect for %s returned error: %v", name, err)
		}

		if _, err := ld.Load(ctx, result.Key); err != nil {
			t.Fatalf("Load for %s returned error: %v", name, err)
		}
	}

	art, err := store.Get(ctx, "https://news24.com/shared")
	if err != nil {
		t.Fatalf("Article not stored: %v", err)
	}

	want := []string{"Jacob Zuma", "Senzo Mchunu"}
	if !reflect.DeepEqual(art.IndividualsMentioned, want) {
		t.Errorf("Expected individuals union %v, got %v", want, art.IndividualsMentioned)
	}
}
