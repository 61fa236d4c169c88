package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"graftwatch/internal/config"
	"graftwatch/internal/logger"
)

func testRetryPolicy(maxAttempts int) *config.RetryPolicy {
	return &config.RetryPolicy{
		MaxAttempts:       maxAttempts,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 2.0,
		TimeoutSec:        5,
	}
}

func newTestClient(endpoint string, maxAttempts int) *Client {
	cfg := &config.SearchConfig{
		Endpoint:          endpoint,
		APIKeyEnv:         "TEST_API_KEY",
		SearchDepth:       "advanced",
		MaxResults:        20,
		RequestsPerSecond: 1000,
		Burst:             100,
	}

	return NewClient(cfg, testRetryPolicy(maxAttempts), "test-key", logger.NewLogger("error"))
}

func TestClient_Search(t *testing.T) {
	var gotReq searchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Expected path /search, got %s", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		score := 0.92
		json.NewEncoder(w).Encode(searchResponse{
			Results: []Hit{
				{URL: "https://news24.com/a", Title: "Article A", Content: "body", Score: &score},
				{URL: "https://mg.co.za/b", Title: "Article B"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	hits, err := client.Search(context.Background(), Query{
		Text:           "corruption related news involving Test Person",
		IncludeDomains: []string{"news24.com", "mg.co.za"},
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}

	if hits[0].URL != "https://news24.com/a" {
		t.Errorf("Unexpected first hit URL: %s", hits[0].URL)
	}

	if gotReq.APIKey != "test-key" {
		t.Errorf("Expected api key in request body, got %q", gotReq.APIKey)
	}

	if gotReq.MaxResults != 20 {
		t.Errorf("Expected max_results 20, got %d", gotReq.MaxResults)
	}

	if len(gotReq.IncludeDomains) != 2 {
		t.Errorf("Expected include_domains forwarded, got %v", gotReq.IncludeDomains)
	}
}

func TestClient_Search_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		json.NewEncoder(w).Encode(searchResponse{
			Results: []Hit{{URL: "https://news24.com/a", Title: "A"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	hits, err := client.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("Expected recovery after retries, got error: %v", err)
	}

	if len(hits) != 1 {
		t.Errorf("Expected 1 hit, got %d", len(hits))
	}

	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_Search_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.Search(context.Background(), Query{Text: "q"})
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("Expected ErrUnexpectedStatusCode, got %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt for a client error, got %d", calls.Load())
	}
}

func TestClient_Search_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.Search(context.Background(), Query{Text: "q"})
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("Expected ErrUnexpectedStatusCode after exhaustion, got %v", err)
	}

	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{code: 200, want: false},
		{code: 400, want: false},
		{code: 401, want: false},
		{code: 404, want: false},
		{code: 408, want: true},
		{code: 429, want: true},
		{code: 500, want: true},
		{code: 503, want: true},
		{code: 504, want: true},
	}

	for _, tt := range tests {
		if got := isRetryableStatus(tt.code); got != tt.want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
