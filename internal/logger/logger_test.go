package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bind8/internal/models"
	"bind8/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var testInfo = version.Info{
	Version:    "v1.2.3",
	GitCommit:  "abc1234",
	BuildDate:  "2026-10-19T00:00:00Z",
	InstanceID: "instance-1",
	Hostname:   "test-host",
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  slog.Level
		expectErr bool
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug},
		{name: "info", input: "info", expected: slog.LevelInfo},
		{name: "warn", input: "warn", expected: slog.LevelWarn},
		{name: "error", input: "error", expected: slog.LevelError},
		{name: "uppercase", input: "DEBUG", expected: slog.LevelDebug},
		{name: "mixed case", input: "Info", expected: slog.LevelInfo},
		{name: "invalid", input: "invalid", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetup_StreamOutputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr"} {
		for _, format := range []string{"json", "text"} {
			t.Run(output+"/"+format, func(t *testing.T) {
				logger, closer, err := Setup(models.LoggingConfig{Level: "info", Format: format, Output: output}, testInfo)
				require.NoError(t, err)
				assert.Nil(t, closer)
				assert.NotNil(t, logger)
			})
		}
	}
}

func TestSetup_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "bind8.log")

	logger, closer, err := Setup(models.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}, testInfo)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	logger.Info("site purged", "wedding_id", "wed-1")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "site purged", record["msg"])
	assert.Equal(t, "wed-1", record["wedding_id"])
	assert.Equal(t, "bind8", record["service"])
	assert.Equal(t, "v1.2.3", record["version"])
	assert.Equal(t, "instance-1", record["instance_id"])
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.LoggingConfig
	}{
		{"file without path", models.LoggingConfig{Level: "info", Format: "json", Output: "file"}},
		{"unwritable path", models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: "/nonexistent/directory/bind8.log"}},
		{"invalid level", models.LoggingConfig{Level: "chatty", Format: "json", Output: "stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Setup(tt.cfg, testInfo)
			assert.Error(t, err)
		})
	}
}

func TestOpenWriter(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		filePath  string
		expectErr bool
	}{
		{name: "stdout", output: "stdout"},
		{name: "stderr", output: "stderr"},
		{name: "default fallback", output: "anything"},
		{name: "file missing path", output: "file", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, closer, err := openWriter(tt.output, tt.filePath)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, writer)
			assert.Nil(t, closer)
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "text", slog.LevelWarn, testInfo)

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should not appear")
	assert.Contains(t, output, "should appear")
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", slog.LevelInfo, testInfo)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.With("policy", "api").InfoContext(ctx, "rate limit exceeded")
	logger.Info("no span")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var withSpan, withoutSpan map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &withSpan))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &withoutSpan))

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", withSpan["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", withSpan["span_id"])
	assert.Equal(t, "api", withSpan["policy"])
	assert.NotContains(t, withoutSpan, "trace_id")
}
