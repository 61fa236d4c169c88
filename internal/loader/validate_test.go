package loader

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name: "Valid record",
			raw:  `{"url": "https://news24.com/a", "title": "A", "source": "news24.com"}`,
		},
		{
			name: "Source re-derived from URL",
			raw:  `{"url": "https://www.news24.com/a", "title": "A"}`,
		},
		{
			name:    "Missing url",
			raw:     `{"title": "A", "source": "news24.com"}`,
			wantErr: ErrMissingURL,
		},
		{
			name:    "Whitespace url",
			raw:     `{"url": "   ", "title": "A"}`,
			wantErr: ErrMissingURL,
		},
		{
			name:    "Missing title",
			raw:     `{"url": "https://news24.com/a", "source": "news24.com"}`,
			wantErr: ErrMissingTitle,
		},
		{
			name:    "No source and no usable host",
			raw:     `{"url": "not-a-url", "title": "A"}`,
			wantErr: ErrMissingSource,
		},
		{
			name:    "Mistyped sentiment",
			raw:     `{"url": "https://news24.com/a", "title": "A", "sentiment_score": "high"}`,
			wantErr: ErrNotRecordShaped,
		},
		{
			name:    "Entry is an array",
			raw:     `["https://news24.com/a"]`,
			wantErr: ErrNotRecordShaped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decodeRecord(json.RawMessage(tt.raw))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("decodeRecord returned error: %v", err)
			}

			if rec.Source == "" {
				t.Error("Expected source to be set on a valid record")
			}
		})
	}
}
