package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(false, true, &buf)

	logger.Info("resolved %d variables", 3)
	logger.Warn("cache disabled")
	logger.Error("fetch failed")

	out := buf.String()
	assert.Contains(t, out, "✓ resolved 3 variables")
	assert.Contains(t, out, "⚠ cache disabled")
	assert.Contains(t, out, "✗ fetch failed")
}

func TestLoggerDebugGating(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(false, true, &buf)
	logger.Debug("should not appear")
	assert.Empty(t, buf.String())

	debugLogger := NewWithWriter(true, true, &buf)
	debugLogger.Debug("fetching %s", "path/to")
	assert.Contains(t, buf.String(), "[DEBUG] fetching path/to")
}

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	token := Secret("s.1234567890")
	assert.Equal(t, "[REDACTED]", token.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", token))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", token))
}

func TestRedact(t *testing.T) {
	t.Parallel()

	out := Redact("token=s.abcdef user=bob", []string{"s.abcdef", "", "ab"})
	assert.Equal(t, "token=[REDACTED] user=bob", out)
}
