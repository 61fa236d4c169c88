package models

import "time"

// Article is the persisted form of a Record. It is created on the first load
// of a URL and updated in place on every subsequent load; articles are never
// deleted by this pipeline.
type Article struct {
	URL                  string     `json:"url"`
	Title                string     `json:"title"`
	Content              string     `json:"content"`
	Source               string     `json:"source"`
	SentimentScore       *float64   `json:"sentiment_score"`
	PublishedAt          *time.Time `json:"published_at"`
	DiscoveredAt         time.Time  `json:"discovered_at"`
	IndividualsMentioned []string   `json:"individuals_mentioned"`
	KeywordsUsed         []string   `json:"keywords_used,omitempty"`
	LoadedAt             time.Time  `json:"loaded_at"`
}
