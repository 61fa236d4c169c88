// Package main provides the loader command: it loads one durable discovery
// object into the article store. The platform's object-created notification
// normally supplies the key; re-running with the same key is safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"graftwatch/internal/articles"
	"graftwatch/internal/config"
	"graftwatch/internal/loader"
	"graftwatch/internal/logger"
	"graftwatch/internal/objectstore"
	"graftwatch/internal/report"
)

func main() {
	configFile := flag.String("config", "configs/graftwatch.yaml", "Path to YAML configuration file")
	key := flag.String("key", "", "Object key to load (required)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	if *key == "" {
		fmt.Println("Error: --key flag is required")
		fmt.Println("Usage: loader --key <object-key> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}

	log := logger.NewLoggerWithFormat(level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, err := buildObjectStore(cfg)
	if err != nil {
		log.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	store, err := buildArticleStore(ctx, cfg)
	if err != nil {
		log.Error("failed to create article store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	summary, err := loader.New(objects, store, log).Load(ctx, *key)
	if err != nil {
		log.Error("load failed", "key", *key, "error", err)
		os.Exit(1)
	}

	fmt.Print(report.Render(
		[]string{"Inserted", "Updated", "Rejected", "Failed", "Outcome"},
		[][]string{{
			strconv.Itoa(summary.Inserted),
			strconv.Itoa(summary.Updated),
			strconv.Itoa(summary.Rejected),
			strconv.Itoa(summary.Failed),
			summary.Outcome(),
		}},
	))

	if summary.Outcome() == "failed" {
		os.Exit(1)
	}
}

// buildObjectStore creates the configured durable object store.
func buildObjectStore(cfg *config.Config) (objectstore.Store, error) {
	out := cfg.Collector.Output

	if out.Store == "s3" {
		return objectstore.NewS3Store(objectstore.S3Options{
			Endpoint:  out.Endpoint,
			Region:    out.Region,
			AccessKey: os.Getenv(out.AccessKeyEnv),
			SecretKey: os.Getenv(out.SecretKeyEnv),
			Bucket:    out.Bucket,
			UseSSL:    out.UseSSL,
		})
	}

	return objectstore.NewFSStore(out.BasePath)
}

// buildArticleStore creates the configured persistent article store.
func buildArticleStore(ctx context.Context, cfg *config.Config) (articles.Store, error) {
	if cfg.Loader.Store == "postgres" {
		dsn := os.Getenv(cfg.Loader.Postgres.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("database DSN not set in %s", cfg.Loader.Postgres.DSNEnv)
		}

		return articles.NewPostgresStore(ctx, dsn, cfg.Loader.Postgres.Table)
	}

	return articles.NewSQLiteStore(cfg.Loader.SQLite.Path)
}
