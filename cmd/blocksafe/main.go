package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/blocksafe/internal/alert"
	"github.com/MikeSquared-Agency/blocksafe/internal/api"
	"github.com/MikeSquared-Agency/blocksafe/internal/bootstrap"
	"github.com/MikeSquared-Agency/blocksafe/internal/config"
	"github.com/MikeSquared-Agency/blocksafe/internal/hermes"
	"github.com/MikeSquared-Agency/blocksafe/internal/metrics"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("BLOCKSAFE_ENV_FILE")); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := bootstrap.SetupLogging(cfg.LogLevel, os.Stdout)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("blocksafe starting", "port", cfg.Port, "oracle_provider", cfg.OracleProvider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	// Oracle
	llm, closeLLM, err := bootstrap.BuildOracle(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to build oracle", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	// Redis (optional, shared sessions and rate limits)
	rdb := bootstrap.BuildRedisClient(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	sinks := bootstrap.Sinks{Sessions: bootstrap.BuildSessionLog(rdb, cfg)}

	// Database (optional)
	var records api.RecordReader
	db, err := bootstrap.BuildStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to set up database", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		sinks.Store = db
		records = db
	}

	// NATS/Hermes (optional)
	var bus *hermes.Client
	if cfg.NatsURL != "" {
		bus, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		sinks.Publisher = bus
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, events will not be published")
	}

	// Slack alerts (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		sinks.Alerter = alert.NewSlackPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		slog.Info("slack alerts ready", "channel", cfg.SlackChannel)
	}

	pipe := bootstrap.BuildPipeline(cfg, llm, m, sinks, logger)

	if bus != nil {
		if err := bus.Subscribe(hermes.SubjectTranscriptReady, pipe.HandleTranscriptReady); err != nil {
			slog.Error("failed to subscribe to transcript events", "error", err)
			os.Exit(1)
		}
		if err := bus.Publish(hermes.SubjectServiceRegistered, hermes.ServiceRegistered{
			Timestamp:      time.Now().UTC(),
			Port:           cfg.Port,
			Version:        api.Version,
			OracleProvider: cfg.OracleProvider,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, api.Options{
		APIKey:       cfg.APIKey,
		Analyzer:     pipe,
		Records:      records,
		Limiter:      bootstrap.BuildLimiter(rdb, cfg, logger),
		RateObserver: m,
		Logger:       logger,
	})
	if cfg.APIKey == "" {
		slog.Warn("BLOCKSAFE_API_KEY not set, API is unauthenticated")
	}

	slog.Info("blocksafe ready", "port", cfg.Port)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
	slog.Info("blocksafe stopped")
}
