// Package main provides the migrate command: it creates or upgrades the
// articles table in the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"graftwatch/internal/articles"
	"graftwatch/internal/config"
	"graftwatch/internal/logger"
)

func main() {
	configFile := flag.String("config", "configs/graftwatch.yaml", "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithFormat(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store articles.Store

	if cfg.Loader.Store == "postgres" {
		dsn := os.Getenv(cfg.Loader.Postgres.DSNEnv)
		if dsn == "" {
			log.Error("database DSN not set", "env", cfg.Loader.Postgres.DSNEnv)
			os.Exit(1)
		}

		store, err = articles.NewPostgresStore(ctx, dsn, cfg.Loader.Postgres.Table)
	} else {
		store, err = articles.NewSQLiteStore(cfg.Loader.SQLite.Path)
	}

	if err != nil {
		log.Error("failed to connect to article store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Article store schema is up to date (%s)\n", cfg.Loader.Store)
}
