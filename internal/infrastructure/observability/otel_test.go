package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPHeaders(t *testing.T) {
	headers := parseOTLPHeaders("Authorization=Basic%20dG9rZW4=, X-Scope = tenant-1,broken")

	assert.Equal(t, map[string]string{
		"Authorization": "Basic dG9rZW4=",
		"X-Scope":       "tenant-1",
	}, headers)
	assert.Nil(t, parseOTLPHeaders(""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestInitLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	lp, logger, err := InitLogger(context.Background(), Config{LogLevel: "warn"}, &buf)
	require.NoError(t, err)
	defer lp.Shutdown(context.Background())

	logger.Info("hidden")
	logger.Warn("duplicate removed", "task_id", "t1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "duplicate removed", record["msg"])
	assert.Equal(t, "t1", record["task_id"])
}

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()
	telemetry, err := Init(ctx, Config{})
	require.NoError(t, err)
	assert.NotNil(t, telemetry.Logger)
	assert.NoError(t, telemetry.Shutdown(ctx))
}
