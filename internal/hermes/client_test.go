package hermes

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) (*slog.Logger, func() map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return logger, func() map[string]any {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		return entry
	}
}

func TestConnectionHandlers(t *testing.T) {
	const url = "nats://bus.internal:4222"

	t.Run("disconnect", func(t *testing.T) {
		logger, entry := captureLog(t)
		disconnected(url, logger)(nil, errors.New("connection reset"))
		e := entry()
		assert.Equal(t, "WARN", e["level"])
		assert.Contains(t, e["msg"], "blocksafe event bus disconnected")
		assert.Equal(t, url, e["url"])
		assert.Equal(t, "connection reset", e["error"])
	})

	t.Run("clean disconnect is silent", func(t *testing.T) {
		var buf bytes.Buffer
		disconnected(url, slog.New(slog.NewJSONHandler(&buf, nil)))(nil, nil)
		assert.Zero(t, buf.Len())
	})

	t.Run("reconnect", func(t *testing.T) {
		logger, entry := captureLog(t)
		reconnected(url, logger)(nil)
		e := entry()
		assert.Equal(t, "INFO", e["level"])
		assert.Equal(t, "blocksafe event bus reconnected", e["msg"])
		assert.Equal(t, url, e["url"])
	})

	t.Run("closed", func(t *testing.T) {
		logger, entry := captureLog(t)
		closed(url, logger)(nil)
		e := entry()
		assert.Contains(t, e["msg"], "blocksafe event bus closed")
	})
}
