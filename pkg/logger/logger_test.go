package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture swaps the writers for one test and restores them after
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	std.mu.Lock()
	prevOut, prevErr, prevMin, prevJSON := std.out, std.errOut, std.min, std.jsonFmt
	std.out, std.errOut = &out, &errOut
	std.mu.Unlock()
	t.Cleanup(func() {
		std.mu.Lock()
		std.out, std.errOut, std.min, std.jsonFmt = prevOut, prevErr, prevMin, prevJSON
		std.mu.Unlock()
	})
	return &out, &errOut
}

func TestSeverityRouting(t *testing.T) {
	out, errOut := capture(t)

	Info("catalog cache enabled")
	Warn("catalog cache slow")
	Error("catalog cache down")

	assert.Contains(t, out.String(), "catalog cache enabled")
	assert.Contains(t, out.String(), "catalog cache slow")
	assert.NotContains(t, out.String(), "catalog cache down")
	assert.Contains(t, errOut.String(), "catalog cache down")
}

func TestLevelFiltering(t *testing.T) {
	out, _ := capture(t)

	std.mu.Lock()
	std.min = LevelWarn
	std.mu.Unlock()

	Debug("ignored")
	Info("also ignored")
	Warn("kept")

	assert.NotContains(t, out.String(), "ignored")
	assert.Contains(t, out.String(), "kept")
}

func TestJSONFormat(t *testing.T) {
	out, _ := capture(t)

	std.mu.Lock()
	std.jsonFmt = true
	std.mu.Unlock()

	WithFields(map[string]interface{}{"protocol": "tcp", "course_id": "c-1"}).Info("frame processed")

	var e entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &e))
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "frame processed", e.Message)
	assert.Equal(t, "tcp", e.Protocol)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, parseLevel("debug"))
	assert.Equal(t, LevelWarn, parseLevel(" WARNING "))
	assert.Equal(t, LevelInfo, parseLevel("nonsense"))
}
