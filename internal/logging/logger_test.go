package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(&buf, slog.LevelInfo, logging.FormatText)
		logger.Debug("hidden")
		logger.Warn("face skipped", "error", errors.New("boom"))

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "err=boom")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatJSON)
		logger.Debug("objects found", "count", 3, "error", "none")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "objects found", rec["msg"])
		assert.EqualValues(t, 3, rec["count"])
		assert.Equal(t, "none", rec["err"])
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	logger := logging.NewNop()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	logger.Error("dropped", "err", errors.New("boom"))
}
