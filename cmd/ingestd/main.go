package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/niananto/online-news-scrapers/internal/config"
	"github.com/niananto/online-news-scrapers/internal/credential"
	"github.com/niananto/online-news-scrapers/internal/fetch"
	"github.com/niananto/online-news-scrapers/internal/provider"
	"github.com/niananto/online-news-scrapers/internal/provider/newsapi"
	"github.com/niananto/online-news-scrapers/internal/provider/youtube"
	"github.com/niananto/online-news-scrapers/internal/publisher"
	"github.com/niananto/online-news-scrapers/internal/scheduler"
	"github.com/niananto/online-news-scrapers/internal/service"
	"github.com/niananto/online-news-scrapers/internal/storage/postgres"
)

const contentTable = "content_items"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The reference relation is read once; unresolved domains fall back
	// to the static table inside the resolver.
	sourceStore := postgres.NewSourceStore(db)
	refs, err := sourceStore.List(ctx)
	if err != nil {
		logger.Error("failed to load source references", "error", err)
		os.Exit(1)
	}
	resolver := postgres.NewSourceResolver(refs, logger)

	// Schema introspection failure is fatal: without the writable
	// column partition persistence is unsafe.
	contentStore, err := postgres.NewContentStore(ctx, db, contentTable, resolver, logger)
	if err != nil {
		logger.Error("failed to introspect target relation", "error", err)
		os.Exit(1)
	}

	runStore := postgres.NewRunStore(db)

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	var pool *credential.Pool
	if len(cfg.Credentials.Keys) > 0 {
		pool, err = credential.NewPool(cfg.Credentials.Keys, cfg.Credentials.DailyCeiling, logger)
		if err != nil {
			logger.Error("failed to build credential pool", "error", err)
			os.Exit(1)
		}
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}

	engine := fetch.NewEngine(fetch.Config{
		MaxAttempts:    cfg.Fetch.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetch.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetch.Retry.MaxBackoff,
	}, pool, logger)

	ingest := service.NewIngestService(registry, engine, contentStore, rabbitMQ, cfg.Providers, logger)

	sched := scheduler.NewScheduler(ingest, runStore, scheduler.Config{
		Interval:         cfg.Scheduler.Interval,
		Jitter:           cfg.Scheduler.Jitter,
		ProviderTimeout:  cfg.Scheduler.ProviderTimeout,
		BreakerThreshold: cfg.Scheduler.BreakerThreshold,
		BreakerCoolDown:  cfg.Scheduler.BreakerCoolDown,
	}, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content ingester",
		"providers", registry.Names(),
		"interval", cfg.Scheduler.Interval,
	)

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func buildRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	for _, p := range cfg.Providers {
		var adapter provider.Adapter
		switch p.Adapter {
		case "newsapi", "":
			adapter = newsapi.New(newsapi.Config{
				Name:    p.Name,
				BaseURL: p.BaseURL,
				Timeout: cfg.Fetch.Timeout,
			}, logger)
		case "youtube":
			adapter = youtube.New(youtube.Config{
				Name:    p.Name,
				BaseURL: p.BaseURL,
				Timeout: cfg.Fetch.Timeout,
			}, logger)
		default:
			return nil, fmt.Errorf("provider %q: unknown adapter %q", p.Name, p.Adapter)
		}

		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
