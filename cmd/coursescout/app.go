package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"coursescout/internal/collector"
	"coursescout/internal/config"
	"coursescout/internal/fetcher"
	"coursescout/internal/logger"
	"coursescout/internal/pipeline"
	"coursescout/internal/storage"
	"coursescout/internal/storage/postgres"
	"coursescout/internal/storage/sqlite"
	"coursescout/internal/validator"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.Storer
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := fetcher.New(fetcher.Options{
		UserAgent:     cfg.RedditUserAgent,
		Timeout:       cfg.HTTPTimeout,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		SnippetLength: cfg.SnippetLength,
	}, log.With(logger.String("component", "fetcher")))

	orchestrator := validator.New(f, store,
		validator.WithTTL(cfg.CacheTTL),
		validator.WithLogger(log.With(logger.String("component", "validator"))),
		validator.WithMetrics(validator.NewMetrics(reg)),
	)

	reddit := collector.NewReddit(collector.RedditOptions{
		UserAgent:    cfg.RedditUserAgent,
		Subreddits:   cfg.RedditSubreddits,
		PostLimit:    cfg.RedditPostLimit,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: collector.DefaultRedditOptions().RetryBackoff,
	}, log.With(logger.String("component", "collector")))

	p := pipeline.New(reddit, store, orchestrator, pipeline.Options{
		URLFilter:    cfg.URLFilter,
		FallbackURLs: cfg.FallbackURLs,
	}, log.With(logger.String("component", "pipeline")))

	return &app{cfg: cfg, log: log, store: store, registry: reg, pipeline: p}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Storer, error) {
	log.Info("initializing database connection", logger.String("driver", cfg.DatabaseDriver))
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		return store, nil
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", logger.Error(err))
	}
	_ = a.log.Sync()
}
