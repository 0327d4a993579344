package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/blocksafe/internal/api"
	"github.com/MikeSquared-Agency/blocksafe/internal/config"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/oracle"
	"github.com/MikeSquared-Agency/blocksafe/internal/pipeline"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
	"github.com/MikeSquared-Agency/blocksafe/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() config.Config {
	return config.Config{
		OracleProvider:     config.ProviderGemini,
		OracleTimeout:      time.Second,
		HoneypotThreshold:  0.85,
		HoneypotMaxTurns:   5,
		HoneypotNoProgress: 2,
		CacheTTL:           time.Minute,
		CacheSize:          10,
		SessionTTL:         time.Minute,
		RateLimitPerMinute: 60,
		RateLimitPerHour:   1000,
	}
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogging("WARN", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Same(t, logger, slog.Default())
}

func TestBuildOracle_NoKeys(t *testing.T) {
	_, _, err := BuildOracle(context.Background(), baseConfig(), quietLogger())
	assert.ErrorIs(t, err, ErrNoOracle)
}

func TestBuildOracle_AnthropicOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.AnthropicAPIKey = "sk-test"
	cfg.AnthropicModel = "claude-test"

	llm, closeFn, err := BuildOracle(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, llm.Primary)
	assert.Nil(t, llm.Fallback)
	assert.IsType(t, &oracle.Fallback{}, llm.For("classify", time.Second, nil, quietLogger()))
}

func TestBackends_FallbackGetsOwnDeadline(t *testing.T) {
	slow := oracle.Func(func(ctx context.Context, _ oracle.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	fast := oracle.Func(func(ctx context.Context, _ oracle.Request) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "ok", nil
	})
	llm := Backends{Primary: slow, Fallback: fast}

	got, err := llm.For("classify", 30*time.Millisecond, nil, quietLogger()).Complete(context.Background(), oracle.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestBuildRedisClient(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, BuildRedisClient(ctx, baseConfig(), quietLogger()), "disabled without addr")

	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(ctx, cfg, quietLogger())
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.IsType(t, &session.RedisLog{}, BuildSessionLog(client, cfg))
	assert.IsType(t, &api.RedisLimiter{}, BuildLimiter(client, cfg, quietLogger()))

	mr.Close()
	assert.Nil(t, BuildRedisClient(ctx, cfg, quietLogger()), "unreachable server")
}

func TestBuildInMemoryFallbacks(t *testing.T) {
	cfg := baseConfig()
	assert.IsType(t, &session.MemoryLog{}, BuildSessionLog(nil, cfg))
	assert.IsType(t, &api.MemoryLimiter{}, BuildLimiter(nil, cfg, quietLogger()))
}

func TestBuildStore_Disabled(t *testing.T) {
	db, err := BuildStore(context.Background(), baseConfig(), quietLogger())
	assert.NoError(t, err)
	assert.Nil(t, db)
}

func TestBuildPipeline_OracleDown(t *testing.T) {
	llm := Backends{Primary: oracle.Func(func(context.Context, oracle.Request) (string, error) {
		return "", errors.New("unavailable")
	})}
	cfg := baseConfig()
	p := BuildPipeline(cfg, llm, nil, Sinks{Sessions: BuildSessionLog(nil, cfg)}, quietLogger())

	rec, err := p.Analyze(context.Background(), pipeline.Input{
		Message: "See you at lunch tomorrow",
		Mode:    decision.ModeShield,
	})
	require.NoError(t, err)
	assert.False(t, rec.IsScam)
	assert.Zero(t, rec.Confidence, "no identifiers to lift the fallback confidence")
	assert.Equal(t, report.EvidenceNone, rec.EvidenceLevel)
}
