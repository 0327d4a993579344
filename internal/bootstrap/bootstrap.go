// Package bootstrap builds the runtime components shared by the blocksafe
// server and the batch command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/blocksafe/internal/anthropic"
	"github.com/MikeSquared-Agency/blocksafe/internal/api"
	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/config"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/gemini"
	"github.com/MikeSquared-Agency/blocksafe/internal/honeypot"
	"github.com/MikeSquared-Agency/blocksafe/internal/metrics"
	"github.com/MikeSquared-Agency/blocksafe/internal/oracle"
	"github.com/MikeSquared-Agency/blocksafe/internal/pipeline"
	"github.com/MikeSquared-Agency/blocksafe/internal/session"
	"github.com/MikeSquared-Agency/blocksafe/internal/store"
)

// ErrNoOracle is returned when neither oracle backend has credentials.
var ErrNoOracle = errors.New("no oracle backend configured")

// SetupLogging installs a JSON slog handler writing to w as the default logger.
func SetupLogging(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// Backends are the configured language model providers in failover order.
// Fallback is nil when only one provider has a key.
type Backends struct {
	Primary  oracle.Oracle
	Fallback oracle.Oracle
}

// For returns the failover chain for one operation. Each provider gets its
// own deadline.
func (b Backends) For(operation string, timeout time.Duration, observer oracle.Observer, logger *slog.Logger) oracle.Oracle {
	return oracle.NewBoundedFallback(b.Primary, b.Fallback, operation, timeout, observer, logger)
}

// BuildOracle orders the providers with keys, the configured provider first.
// The returned func releases backend resources.
func BuildOracle(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backends, func(), error) {
	backends := map[string]oracle.Oracle{}
	closeFn := func() {}

	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return Backends{}, nil, fmt.Errorf("gemini client: %w", err)
		}
		backends[config.ProviderGemini] = g
		closeFn = func() {
			if err := g.Close(); err != nil {
				logger.Warn("gemini close failed", "error", err)
			}
		}
	}
	if cfg.AnthropicAPIKey != "" {
		backends[config.ProviderAnthropic] = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}

	order := []string{config.ProviderGemini, config.ProviderAnthropic}
	if cfg.OracleProvider == config.ProviderAnthropic {
		order = []string{config.ProviderAnthropic, config.ProviderGemini}
	}

	var chain []oracle.Oracle
	var names []string
	for _, name := range order {
		if o, ok := backends[name]; ok {
			chain = append(chain, o)
			names = append(names, name)
		}
	}
	switch len(chain) {
	case 0:
		closeFn()
		return Backends{}, nil, ErrNoOracle
	case 1:
		logger.Info("oracle ready", "primary", names[0])
		return Backends{Primary: chain[0]}, closeFn, nil
	default:
		logger.Info("oracle ready", "primary", names[0], "fallback", names[1])
		return Backends{Primary: chain[0], Fallback: chain[1]}, closeFn, nil
	}
}

// BuildRedisClient returns a connected client, or nil when REDIS_ADDR is
// unset or the server does not answer a ping.
func BuildRedisClient(ctx context.Context, cfg config.Config, logger *slog.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, using in-memory state", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", cfg.RedisAddr)
	return client
}

// BuildSessionLog keeps sessions in redis when a client is available.
func BuildSessionLog(rdb *redis.Client, cfg config.Config) session.Log {
	if rdb == nil {
		return session.NewMemoryLog(session.DefaultDepth, cfg.SessionTTL)
	}
	return session.NewRedisLog(rdb, session.DefaultDepth, cfg.SessionTTL)
}

// BuildLimiter shares rate limit windows through redis when a client is
// available.
func BuildLimiter(rdb *redis.Client, cfg config.Config, logger *slog.Logger) api.Limiter {
	if rdb == nil {
		return api.NewMemoryLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerHour)
	}
	return api.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, cfg.RateLimitPerHour, logger)
}

// BuildStore connects to postgres and applies the schema when
// DATABASE_AUTO_MIGRATE is set. It returns nil, nil without DATABASE_URL.
func BuildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, records will not be persisted")
		return nil, nil
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("database connected", "auto_migrate", cfg.AutoMigrate)
	return db, nil
}

// Sinks are the optional outputs of a pipeline. Leave a field unset rather
// than assigning a nil pointer.
type Sinks struct {
	Sessions  session.Log
	Store     pipeline.RecordStore
	Publisher pipeline.Publisher
	Alerter   pipeline.Alerter
}

// BuildPipeline wires the classifier and honeypot onto the oracle backends
// and returns the pipeline.
func BuildPipeline(cfg config.Config, llm Backends, m *metrics.Metrics, sinks Sinks, logger *slog.Logger) *pipeline.Pipeline {
	classify := llm.For("classify", cfg.OracleTimeout, m, logger)
	engage := llm.For("engage", cfg.OracleTimeout, m, logger)

	return pipeline.New(pipeline.Deps{
		Classifier: classifier.New(classify, classifier.NewCache(cfg.CacheSize, cfg.CacheTTL), logger, m),
		Engine:     decision.NewEngine(cfg.HoneypotThreshold),
		Honeypot: honeypot.NewAgent(engage, honeypot.Config{
			MaxTurns:        cfg.HoneypotMaxTurns,
			NoProgressTurns: cfg.HoneypotNoProgress,
		}, logger, m),
		Sessions:  sinks.Sessions,
		Store:     sinks.Store,
		Publisher: sinks.Publisher,
		Alerter:   sinks.Alerter,
		Metrics:   m,
		Logger:    logger,
	})
}
