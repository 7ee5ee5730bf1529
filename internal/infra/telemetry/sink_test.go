package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songsmith/internal/usecase/invoke"
)

func TestUsageSink_Record_LogsAttempt(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewUsageSink(logger)

	sink.Record(context.Background(), invoke.UsageRecord{
		Provider:         "anthropic",
		Model:            "claude-sonnet-4-20250514",
		Tier:             "max_power",
		Latency:          1200 * time.Millisecond,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		Success:          true,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "provider attempt", entry["msg"])
	assert.Equal(t, "anthropic", entry["provider"])
	assert.Equal(t, "max_power", entry["tier"])
	assert.Equal(t, true, entry["success"])
	assert.Equal(t, float64(150), entry["total_tokens"])
}

func TestUsageSink_Record_Failure(t *testing.T) {
	var buf bytes.Buffer
	sink := NewUsageSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Record(context.Background(), invoke.UsageRecord{
		Provider: "deepseek",
		Model:    "deepseek-chat",
		Tier:     "speed",
		Latency:  300 * time.Millisecond,
		Success:  false,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, float64(0), entry["total_tokens"])
}
