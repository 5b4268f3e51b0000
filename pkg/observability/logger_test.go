package observability

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	fn()
	return buf.String()
}

func TestStandardLogger(t *testing.T) {
	t.Run("info includes level, prefix, and fields", func(t *testing.T) {
		logger := NewStandardLogger("test")
		out := captureOutput(t, func() {
			logger.Info("something happened", map[string]interface{}{"count": 3})
		})
		assert.Contains(t, out, "[INFO]")
		assert.Contains(t, out, "[test]")
		assert.Contains(t, out, "something happened")
		assert.Contains(t, out, "count=3")
	})

	t.Run("debug is suppressed at the default level", func(t *testing.T) {
		logger := NewStandardLogger("test")
		out := captureOutput(t, func() {
			logger.Debug("hidden", nil)
		})
		assert.Empty(t, out)
	})

	t.Run("WithLevel enables debug", func(t *testing.T) {
		logger := NewStandardLogger("test").(*StandardLogger).WithLevel(LogLevelDebug)
		out := captureOutput(t, func() {
			logger.Debug("visible", nil)
		})
		assert.Contains(t, out, "[DEBUG]")
		assert.Contains(t, out, "visible")
	})

	t.Run("With carries fields into every message", func(t *testing.T) {
		logger := NewStandardLogger("test").With(map[string]interface{}{"component": "cache"})
		out := captureOutput(t, func() {
			logger.Warn("watch out", nil)
		})
		assert.Contains(t, out, "component=cache")
	})

	t.Run("WithPrefix replaces the prefix", func(t *testing.T) {
		logger := NewStandardLogger("outer").WithPrefix("inner")
		out := captureOutput(t, func() {
			logger.Error("boom", nil)
		})
		assert.Contains(t, out, "[inner]")
		assert.NotContains(t, out, "[outer]")
	})
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	out := captureOutput(t, func() {
		logger.Info("discarded", map[string]interface{}{"k": "v"})
		logger.Errorf("discarded %d", 1)
		logger.With(map[string]interface{}{"k": "v"}).Warn("discarded", nil)
	})
	assert.Empty(t, out)
}
