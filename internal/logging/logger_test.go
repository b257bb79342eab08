package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			level, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestSlogLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "render pass")
	logger.Info(ctx, "fixture created")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, errors.New("slow"), "stabilize took long", "ms", 120)
	assert.Contains(t, buf.String(), "stabilize took long")
	assert.Contains(t, buf.String(), "error=slow")
	assert.Contains(t, buf.String(), "ms=120")
}

func TestSlogLoggerComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger := base.WithComponent("testbed").With("fixture", "f-1")
	logger.Debug(context.Background(), "render pass", "nodes", 3)

	out := buf.String()
	assert.Contains(t, out, `"component":"testbed"`)
	assert.Contains(t, out, `"fixture":"f-1"`)
	assert.Contains(t, out, `"nodes":3`)
}

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&LoggerConfig{Level: LevelInfo, Format: "json", Backend: "zap", Output: &buf})
	require.NoError(t, err)

	logger.Debug(context.Background(), "hidden")
	logger.WithComponent("bus").Info(context.Background(), "handler installed", "owner", "testbed")
	require.NoError(t, logger.(*ZapLogger).Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"bus"`)
	assert.Contains(t, out, `"owner":"testbed"`)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(&LoggerConfig{Backend: "syslog"})
	assert.Error(t, err)
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	op := StartOperation(base, "click-all")
	d := op.End(context.Background())

	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Contains(t, buf.String(), "operation=click-all")
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Info(context.Background(), "nothing")
	assert.NotNil(t, logger.With("k", "v").WithComponent("c"))
}
