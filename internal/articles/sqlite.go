package articles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"graftwatch/internal/models"
)

// SQLiteStore is the local article store used for development runs and tests.
// The upsert is a transaction-scoped conditional write: every transaction
// opens with an immediate write lock (_txlock=immediate), and busy_timeout
// makes concurrent writers queue instead of failing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// EnsureSchema creates the articles table if it does not exist. Individuals
// and keywords are stored as JSON arrays in text columns.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			content TEXT,
			source TEXT NOT NULL,
			sentiment_score REAL,
			published_at TEXT,
			discovered_at TEXT,
			individuals_mentioned TEXT NOT NULL DEFAULT '[]',
			keywords_used TEXT NOT NULL DEFAULT '[]',
			loaded_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create articles table: %w", err)
	}

	return nil
}

// Upsert inserts or merges one record inside a single write transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, rec models.Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	stored, err := getArticle(ctx, tx, rec.URL)

	switch {
	case errors.Is(err, ErrNotFound):
		if err := insertArticle(ctx, tx, newArticle(rec, now)); err != nil {
			return false, err
		}

		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit insert: %w", err)
		}

		return true, nil

	case err != nil:
		return false, err

	default:
		if err := updateArticle(ctx, tx, mergeRecord(*stored, rec, now)); err != nil {
			return false, err
		}

		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit update: %w", err)
		}

		return false, nil
	}
}

// Get fetches one article by URL.
func (s *SQLiteStore) Get(ctx context.Context, url string) (*models.Article, error) {
	return getArticle(ctx, s.db, url)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier covers *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getArticle(ctx context.Context, q querier, url string) (*models.Article, error) {
	row := q.QueryRowContext(ctx, `
		SELECT url, title, content, source, sentiment_score, published_at,
		       discovered_at, individuals_mentioned, keywords_used, loaded_at
		FROM articles WHERE url = ?`, url)

	var (
		art                   models.Article
		content               sql.NullString
		sentiment             sql.NullFloat64
		published, discovered sql.NullString
		individuals, keywords string
		loadedAt              string
	)

	err := row.Scan(&art.URL, &art.Title, &content, &art.Source, &sentiment,
		&published, &discovered, &individuals, &keywords, &loadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}

		return nil, fmt.Errorf("failed to get article %s: %w", url, err)
	}

	art.Content = content.String

	if sentiment.Valid {
		art.SentimentScore = &sentiment.Float64
	}

	if published.Valid {
		if t, perr := time.Parse(time.RFC3339Nano, published.String); perr == nil {
			art.PublishedAt = &t
		}
	}

	if discovered.Valid {
		if t, perr := time.Parse(time.RFC3339Nano, discovered.String); perr == nil {
			art.DiscoveredAt = t
		}
	}

	if err := json.Unmarshal([]byte(individuals), &art.IndividualsMentioned); err != nil {
		return nil, fmt.Errorf("failed to decode individuals for %s: %w", url, err)
	}

	if err := json.Unmarshal([]byte(keywords), &art.KeywordsUsed); err != nil {
		return nil, fmt.Errorf("failed to decode keywords for %s: %w", url, err)
	}

	if t, perr := time.Parse(time.RFC3339Nano, loadedAt); perr == nil {
		art.LoadedAt = t
	}

	return &art, nil
}

func insertArticle(ctx context.Context, q querier, art models.Article) error {
	individuals, keywords, err := encodeSets(art)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO articles
			(url, title, content, source, sentiment_score, published_at,
			 discovered_at, individuals_mentioned, keywords_used, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		art.URL, art.Title, art.Content, art.Source,
		nullFloat(art.SentimentScore), nullTime(art.PublishedAt),
		nullTimeValue(art.DiscoveredAt), individuals, keywords,
		art.LoadedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", art.URL, err)
	}

	return nil
}

func updateArticle(ctx context.Context, q querier, art models.Article) error {
	individuals, keywords, err := encodeSets(art)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE articles SET
			title = ?, content = ?, source = ?, sentiment_score = ?,
			published_at = ?, discovered_at = ?, individuals_mentioned = ?,
			keywords_used = ?, loaded_at = ?
		WHERE url = ?`,
		art.Title, art.Content, art.Source,
		nullFloat(art.SentimentScore), nullTime(art.PublishedAt),
		nullTimeValue(art.DiscoveredAt), individuals, keywords,
		art.LoadedAt.Format(time.RFC3339Nano), art.URL)
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", art.URL, err)
	}

	return nil
}

func encodeSets(art models.Article) (individuals, keywords string, err error) {
	ind := art.IndividualsMentioned
	if ind == nil {
		ind = []string{}
	}

	kw := art.KeywordsUsed
	if kw == nil {
		kw = []string{}
	}

	indData, err := json.Marshal(ind)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode individuals: %w", err)
	}

	kwData, err := json.Marshal(kw)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode keywords: %w", err)
	}

	return string(indData), string(kwData), nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}

	return *f
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func nullTimeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(time.RFC3339Nano)
}
