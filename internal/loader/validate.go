package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"graftwatch/internal/models"
	"graftwatch/pkg/urlutil"
)

// Per-record validation errors. A record failing any of these is rejected and
// skipped; it never aborts the batch.
var (
	ErrNotRecordShaped = errors.New("entry is not record-shaped")
	ErrMissingURL      = errors.New("record missing url")
	ErrMissingTitle    = errors.New("record missing title")
	ErrMissingSource   = errors.New("record missing source")
)

// decodeRecord parses and validates one batch entry. A non-numeric sentiment
// score or otherwise mistyped field surfaces here as ErrNotRecordShaped for
// this entry alone. A missing source is re-derived from the URL when
// possible, since older producers omitted it.
func decodeRecord(raw json.RawMessage) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Record{}, fmt.Errorf("%w: %v", ErrNotRecordShaped, err)
	}

	if strings.TrimSpace(rec.URL) == "" {
		return models.Record{}, ErrMissingURL
	}

	if strings.TrimSpace(rec.Title) == "" {
		return models.Record{}, ErrMissingTitle
	}

	if strings.TrimSpace(rec.Source) == "" {
		domain := urlutil.Domain(rec.URL)
		if domain == "" {
			return models.Record{}, ErrMissingSource
		}

		rec.Source = domain
	}

	return rec, nil
}
