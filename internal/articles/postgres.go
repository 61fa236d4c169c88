package articles

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"graftwatch/internal/models"
)

// ErrInvalidTableName rejects table names that are not plain identifiers,
// since the table name is interpolated into statements.
var ErrInvalidTableName = errors.New("invalid table name")

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore is the production article store. The upsert is a single
// INSERT ... ON CONFLICT statement, so concurrent loads of the same URL
// serialize inside the database and no update is lost.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the articles table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			content TEXT,
			source TEXT NOT NULL,
			sentiment_score DOUBLE PRECISION,
			published_at TIMESTAMPTZ,
			discovered_at TIMESTAMPTZ,
			individuals_mentioned TEXT[] NOT NULL DEFAULT '{}',
			keywords_used TEXT[] NOT NULL DEFAULT '{}',
			loaded_at TIMESTAMPTZ NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	return nil
}

// Upsert inserts or merges one record. RETURNING (xmax = 0) reports whether
// the row was newly inserted.
func (s *PostgresStore) Upsert(ctx context.Context, rec models.Record) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s AS a
			(url, title, content, source, sentiment_score, published_at,
			 discovered_at, individuals_mentioned, keywords_used, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (url) DO UPDATE SET
			title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE a.title END,
			content = CASE WHEN EXCLUDED.content <> '' THEN EXCLUDED.content ELSE a.content END,
			source = CASE WHEN EXCLUDED.source <> '' THEN EXCLUDED.source ELSE a.source END,
			sentiment_score = COALESCE(EXCLUDED.sentiment_score, a.sentiment_score),
			published_at = COALESCE(EXCLUDED.published_at, a.published_at),
			discovered_at = COALESCE(EXCLUDED.discovered_at, a.discovered_at),
			individuals_mentioned = ARRAY(
				SELECT DISTINCT m
				FROM unnest(a.individuals_mentioned || EXCLUDED.individuals_mentioned) AS m
				ORDER BY m
			),
			keywords_used = CASE
				WHEN cardinality(EXCLUDED.keywords_used) > 0 THEN EXCLUDED.keywords_used
				ELSE a.keywords_used
			END,
			loaded_at = EXCLUDED.loaded_at
		RETURNING (xmax = 0)`, s.table)

	individuals := rec.IndividualsMentioned
	if individuals == nil {
		individuals = []string{}
	}

	keywords := rec.KeywordsUsed
	if keywords == nil {
		keywords = []string{}
	}

	// A zero discovery time maps to NULL so COALESCE keeps the stored value
	var discoveredAt any
	if !rec.DiscoveredAt.IsZero() {
		discoveredAt = rec.DiscoveredAt
	}

	var created bool

	err := s.pool.QueryRow(ctx, query,
		rec.URL, rec.Title, rec.Content, rec.Source, rec.SentimentScore,
		rec.PublishedAt, discoveredAt, individuals, keywords, time.Now().UTC(),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert article %s: %w", rec.URL, err)
	}

	return created, nil
}

// Get fetches one article by URL.
func (s *PostgresStore) Get(ctx context.Context, url string) (*models.Article, error) {
	query := fmt.Sprintf(`
		SELECT url, title, content, source, sentiment_score, published_at,
		       discovered_at, individuals_mentioned, keywords_used, loaded_at
		FROM %s WHERE url = $1`, s.table)

	var (
		art        models.Article
		content    *string
		discovered *time.Time
	)

	err := s.pool.QueryRow(ctx, query, url).Scan(
		&art.URL, &art.Title, &content, &art.Source, &art.SentimentScore,
		&art.PublishedAt, &discovered, &art.IndividualsMentioned,
		&art.KeywordsUsed, &art.LoadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}

		return nil, fmt.Errorf("failed to get article %s: %w", url, err)
	}

	if content != nil {
		art.Content = *content
	}

	if discovered != nil {
		art.DiscoveredAt = *discovered
	}

	return &art, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}
