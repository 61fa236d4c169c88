// Package main provides the watcher command: a local stand-in for the
// platform's object-created notifications. It watches the filesystem object
// store and invokes the loader once per newly written discovery object.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"graftwatch/internal/articles"
	"graftwatch/internal/config"
	"graftwatch/internal/loader"
	"graftwatch/internal/logger"
	"graftwatch/internal/notify"
	"graftwatch/internal/objectstore"
)

func main() {
	configFile := flag.String("config", "configs/graftwatch.yaml", "Path to YAML configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Collector.Output.Store != "fs" {
		fmt.Fprintln(os.Stderr, "The watcher only supports the fs object store; s3 buckets deliver their own notifications")
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}

	log := logger.NewLoggerWithFormat(level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, err := objectstore.NewFSStore(cfg.Collector.Output.BasePath)
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

	ld := loader.New(objects, store, log)

	watcher, err := notify.NewWatcher(objects.Root(), func(ctx context.Context, key string) {
		summary, err := ld.Load(ctx, key)
		if err != nil {
			log.Error("load failed", "key", key, "error", err)

			return
		}

		log.Info("object processed", "key", key, "outcome", summary.Outcome())
	}, log)
	if err != nil {
		log.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("watcher stopped", "error", err)
		os.Exit(1)
	}

	log.Info("watcher shut down")
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
