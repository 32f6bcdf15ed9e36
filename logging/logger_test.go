package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerJSON(t *testing.T) {
	SetLevel("debug")
	defer SetLevel("info")

	var buf bytes.Buffer
	logger := NewComponentLogger("effects", "v1.2.3", Options{Format: "json", Out: &buf})
	logger.LogAnalysis(AnalysisMetrics{TxHash: "abcd", Operations: 2, Effects: 5, Duration: time.Millisecond})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "effects", line["component"])
	assert.Equal(t, "v1.2.3", line["version"])
	assert.Equal(t, "abcd", line["tx_hash"])
	assert.Equal(t, float64(5), line["effects"])
	assert.Equal(t, "Analyzed transaction", line["message"])
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{level: "debug", expected: zerolog.DebugLevel},
		{level: "warn", expected: zerolog.WarnLevel},
		{level: "error", expected: zerolog.ErrorLevel},
		{level: "verbose", expected: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			SetLevel(tt.level)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}
