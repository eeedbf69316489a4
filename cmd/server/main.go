package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ligastats/ligastats/internal/api"
	"github.com/ligastats/ligastats/internal/pipeline"
	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/logging"
	"github.com/ligastats/ligastats/internal/pkg/notify"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

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

	logger := logging.Setup(&cfg.Logging, "server")

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

	runner := pipeline.NewRunner(cfg, store, notifier)
	server := api.NewServer(ctx, cfg, store, runner)

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
