// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("dailypuzzle", "1.0.0", "json", &buf)

	logger.Info("credential issued", "email_domain", "example.com")

	entry := decode(t, &buf)
	assert.Equal(t, "credential issued", entry["msg"])
	assert.Equal(t, "dailypuzzle", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "example.com", entry["email_domain"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup("sweeper", "1.0.0", "text", &buf).Info("sweep finished")

	assert.Contains(t, buf.String(), "sweep finished")
	assert.Contains(t, buf.String(), "service=sweeper")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("dailypuzzle", "1.0.0", "", &buf).Info("hello")
	decode(t, &buf)
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("dailypuzzle", "1.0.0", "json", &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	logger.InfoContext(ctx, "traced")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	Setup("dailypuzzle", "1.0.0", "json", &buf).Info("untraced")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_RedactsSecrets(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		key  string
	}{
		{"token", func(l *slog.Logger) { l.Info("m", "token", "abc123") }, "token"},
		{"link token", func(l *slog.Logger) { l.Info("m", "link_token", "deadbeef") }, "link_token"},
		{"code", func(l *slog.Logger) { l.Info("m", slog.String("code", "K7QX2M")) }, "code"},
		{"session token via With", func(l *slog.Logger) { l.With("session_token", "s3cr3t").Info("m") }, "session_token"},
		{"upper case key", func(l *slog.Logger) { l.Info("m", "TOKEN", "abc") }, "TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(Setup("dailypuzzle", "1.0.0", "json", &buf))

			entry := decode(t, &buf)
			assert.Equal(t, Redacted, entry[tt.key])
		})
	}
}

func TestHandler_RedactsInsideGroups(t *testing.T) {
	var buf bytes.Buffer
	Setup("dailypuzzle", "1.0.0", "json", &buf).
		Info("m", slog.Group("login", slog.String("code", "K7QX2M"), slog.String("email_domain", "x.org")))

	entry := decode(t, &buf)
	group, ok := entry["login"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, group["code"])
	assert.Equal(t, "x.org", group["email_domain"])
	assert.NotContains(t, buf.String(), "K7QX2M")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetupLevel_FiltersBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLevel("dailypuzzle", "1.0.0", "json", slog.LevelWarn, &buf)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := SetDefault("dailypuzzle", "2.0.0", "json", slog.LevelInfo)

	assert.Same(t, logger, slog.Default())
}
