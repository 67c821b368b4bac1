package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	// Reinitialize logger with test output
	logger = nil
	InitLogger(level)

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
			logFn:    func() { Info("loading repository") },
			contains: []string{"loading repository"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("queueing repo for load") },
			contains: []string{"queueing repo for load", "level=DEBUG"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("queueing repo for load") },
			excludes: []string{"queueing repo for load"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("sync failed", Fields{"repo": "updates", "attempts": 2}) },
			contains: []string{"sync failed", "level=WARN", "repo=updates", "attempts=2"},
		},
		{
			name:     "formatted error log",
			level:    "error",
			logFn:    func() { Errorf("repository %s failed", "fedora") },
			contains: []string{"repository fedora failed", "level=ERROR"},
		},
		{
			name:     "formatted info log",
			level:    "info",
			logFn:    func() { Infof("loaded %d packages", 42) },
			contains: []string{"loaded 42 packages"},
		},
		{
			name:     "unknown level falls back to info",
			level:    "bogus",
			logFn:    func() { Info("still works") },
			contains: []string{"still works"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, output, want)
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, output, notWant)
			}
		})
	}
}

func TestGetLogger_InitializesIfNil(t *testing.T) {
	logger = nil
	assert.NotPanics(t, func() {
		lg := GetLogger()
		assert.NotNil(t, lg)
	})
}

func TestMergeFields(t *testing.T) {
	attrs := mergeFields(Fields{"repo": "base"}, Fields{"repo": "updates", "count": 3})
	result := make(map[string]interface{})
	for i := 0; i < len(attrs); i += 2 {
		result[attrs[i].(string)] = attrs[i+1]
	}
	assert.Equal(t, map[string]interface{}{"repo": "updates", "count": 3}, result)
}
