// Package main provides the collector command: it runs discovery for the
// configured subjects and writes one durable object per subject per run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"graftwatch/internal/collector"
	"graftwatch/internal/config"
	"graftwatch/internal/logger"
	"graftwatch/internal/objectstore"
	"graftwatch/internal/report"
	"graftwatch/internal/search"
)

func main() {
	configFile := flag.String("config", "configs/graftwatch.yaml", "Path to YAML configuration file")
	subjectName := flag.String("subject", "", "Run discovery for this subject only (default: all enabled)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

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

	apiKey := os.Getenv(cfg.Collector.Search.APIKeyEnv)
	if apiKey == "" {
		log.Error("search API key not set", "env", cfg.Collector.Search.APIKeyEnv)
		os.Exit(1)
	}

	store, err := buildObjectStore(cfg)
	if err != nil {
		log.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	provider := search.NewClient(&cfg.Collector.Search, &cfg.Collector.Retry, apiKey, log)
	col := collector.New(provider, store, cfg.Collector.Output.Prefix, cfg.Collector.Search.QueryTemplate, log)

	subjects := cfg.GetEnabledSubjects()

	if *subjectName != "" {
		subj, ok := cfg.GetSubject(*subjectName)
		if !ok {
			log.Error("no enabled subject with that name", "subject", *subjectName)
			os.Exit(1)
		}

		subjects = []config.Subject{subj}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting discovery", "subjects", len(subjects))

	var rows [][]string

	failures := 0

	for _, subject := range subjects {
		result, err := col.Collect(ctx, subject)
		if err != nil {
			log.Error("discovery run failed", "individual", subject.Name, "error", err)

			failures++
			rows = append(rows, []string{subject.Name, "failed", "-", "-", "-"})

			continue
		}

		rows = append(rows, []string{
			subject.Name,
			result.Key,
			strconv.Itoa(result.Fetched),
			strconv.Itoa(result.Filtered),
			strconv.Itoa(result.Written),
		})
	}

	fmt.Print(report.Render([]string{"Subject", "Object", "Fetched", "Filtered", "Written"}, rows))

	if failures > 0 {
		log.Error("discovery finished with failures", "failed", failures, "total", len(subjects))
		os.Exit(1)
	}

	fmt.Printf("\n✓ Discovery complete: %d subject(s) processed\n", len(subjects))
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
