package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("production", &buf)
	t.Cleanup(func() { InitWithWriter("development", &bytes.Buffer{}) })

	Info("stage_done", "trace_id", "abc", "stage", "ranking")
	Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "stage_done", entry["msg"])
	assert.Equal(t, "abc", entry["trace_id"])
}

func TestInit_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("development", &buf)

	Debug("cache_miss", "key", "search:1")
	assert.Contains(t, buf.String(), "cache_miss")
	assert.Contains(t, buf.String(), "key=search:1")
}
