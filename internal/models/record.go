// Package models defines data structures shared by the collector and loader.
package models

import "time"

// Record is the normalized representation of one discovered article. Records
// are the entries of a discovery object and the unit the loader upserts; the
// URL is the sole natural key, so two records with the same URL describe the
// same logical article and must merge rather than duplicate.
type Record struct {
	URL                  string     `json:"url"`
	Title                string     `json:"title"`
	Content              string     `json:"content"`
	Source               string     `json:"source"`
	SentimentScore       *float64   `json:"sentiment_score"`
	PublishedAt          *time.Time `json:"published_at"`
	DiscoveredAt         time.Time  `json:"discovered_at"`
	IndividualsMentioned []string   `json:"individuals_mentioned"`
	KeywordsUsed         []string   `json:"keywords_used,omitempty"`
}
