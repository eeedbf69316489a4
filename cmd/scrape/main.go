package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligastats/ligastats/internal/pipeline"
	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/logging"
	"github.com/ligastats/ligastats/internal/pkg/notify"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

// scrape runs the ingestion pipeline once for a single league URL. Useful for
// cron schedules and manual backfills without the API server.
func main() {
	configPath := flag.String("config", "", "path to config file")
	leagueURL := flag.String("url", "", "league URL to ingest")
	flag.Parse()

	if *leagueURL == "" {
		slog.Error("Missing required -url flag")
		os.Exit(1)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(&cfg.Logging, "scrape")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgres(&cfg.Postgres)
	if err != nil {
		logger.Error("Failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	notifier, err := notify.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Error("Failed to create notifier", "error", err)
		os.Exit(1)
	}

	metrics, err := pipeline.NewRunner(cfg, store, notifier).Run(ctx, *leagueURL)
	if err != nil {
		logger.Error("Run failed", "url", *leagueURL, "error", err)
		os.Exit(1)
	}

	logger.Info("Run finished",
		"inserted", metrics.Inserted, "updated", metrics.Updated,
		"skipped", metrics.Skipped, "events", metrics.EventsInserted,
		"errors", metrics.Errors)
}
