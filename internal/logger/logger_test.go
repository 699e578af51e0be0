package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level, format)
	defer InitLogger("info", FormatText)

	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("batch started") },
			contains: []string{"batch started", "level=INFO"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("skipping existing file") },
			contains: []string{"skipping existing file", "level=DEBUG"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("skipping existing file") },
			excludes: []string{"skipping existing file"},
		},
		{
			name:     "error log",
			level:    "error",
			logFn:    func() { Error("download failed") },
			contains: []string{"download failed", "level=ERROR"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("retrying", Fields{"attempt": 2, "url": "https://example.com/a"}) },
			contains: []string{"retrying", "level=WARN", "attempt=2", "url=https://example.com/a"},
		},
		{
			name:     "success log",
			level:    "info",
			logFn:    func() { Success("batch completed") },
			contains: []string{"batch completed", "status=success"},
		},
		{
			name:     "formatted info log",
			level:    "info",
			logFn:    func() { Infof("downloaded %d files", 3) },
			contains: []string{"downloaded 3 files"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, output, want)
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, output, notWant)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	output := captureOutput(t, "info", FormatJSON, func() {
		Info("batch finished", Fields{
			"batch":  "b-1",
			"failed": 0,
			"ok":     true,
		})
	})

	assert.Contains(t, output, `"msg":"batch finished"`)
	assert.Contains(t, output, `"level":"INFO"`)
	assert.Contains(t, output, `"batch":"b-1"`)
	assert.Contains(t, output, `"failed":0`)
	assert.Contains(t, output, `"ok":true`)
}

func TestGetLogger_InitializesIfNil(t *testing.T) {
	loggerMu.Lock()
	logger = nil
	loggerMu.Unlock()

	assert.NotPanics(t, func() {
		lg := GetLogger()
		assert.NotNil(t, lg)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMergeFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []Fields
		expect []interface{}
	}{
		{
			name:   "single field",
			fields: []Fields{{"key1": "value1"}},
			expect: []interface{}{"key1", "value1"},
		},
		{
			name:   "multiple fields sorted by key",
			fields: []Fields{{"b": "value1"}, {"a": 123}},
			expect: []interface{}{"a", 123, "b", "value1"},
		},
		{
			name:   "later fields overwrite earlier ones",
			fields: []Fields{{"key1": "value1"}, {"key1": "new value"}},
			expect: []interface{}{"key1", "new value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, mergeFields(tt.fields...))
		})
	}
}
