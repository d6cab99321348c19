// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("tweet_id", "t1").Msg("created")

	m := decodeLine(t, &buf)
	if m["message"] != "created" {
		t.Errorf("message = %v", m["message"])
	}
	if m["tweet_id"] != "t1" {
		t.Errorf("tweet_id = %v", m["tweet_id"])
	}
	if m["level"] != "info" {
		t.Errorf("level = %v", m["level"])
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithActorID(ctx, "u1")

	Ctx(ctx).Info().Msg("hello")

	m := decodeLine(t, &buf)
	for k, want := range map[string]string{
		"request_id":     "req-1",
		"correlation_id": "corr-1",
		"actor_id":       "u1",
	} {
		if m[k] != want {
			t.Errorf("%s = %v, want %s", k, m[k], want)
		}
	}
}

func TestCtxWithoutIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	Ctx(context.Background()).Info().Msg("bare")

	m := decodeLine(t, &buf)
	if _, ok := m["request_id"]; ok {
		t.Error("request_id should be absent")
	}
	if _, ok := m["actor_id"]; ok {
		t.Error("actor_id should be absent")
	}
}

func TestGenerateIDs(t *testing.T) {
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation id length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request ids should differ")
	}
	if ActorIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no actor id")
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.DebugLevel)
	logger := slog.New(NewSlogHandlerWithLogger(zl)).
		With("service", "sweep").
		WithGroup("entry")

	logger.Warn("retry", "attempts", 3, "tweet", "t1")

	m := decodeLine(t, &buf)
	if m["level"] != "warn" {
		t.Errorf("level = %v", m["level"])
	}
	if m["entry.attempts"] != float64(3) {
		t.Errorf("entry.attempts = %v", m["entry.attempts"])
	}
	if m["entry.tweet"] != "t1" {
		t.Errorf("entry.tweet = %v", m["entry.tweet"])
	}
	if m["service"] != "sweep" {
		t.Errorf("service attr missing: %v", m)
	}
}

func TestSlogLevelMapping(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := toZerologLevel(tt.in); got != tt.want {
			t.Errorf("toZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := NewWatermillAdapterWithLogger(zerolog.New(&buf))

	child := a.With(watermill.LogFields{"topic": "tweet_t1"})
	child.Error("publish failed", errors.New("boom"), watermill.LogFields{"sink": "nats"})

	m := decodeLine(t, &buf)
	if m["topic"] != "tweet_t1" || m["sink"] != "nats" {
		t.Errorf("fields missing: %v", m)
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerWithLogger(zerolog.New(&buf))
	ctx := ContextWithRequestID(context.Background(), "req-9")

	l.Record(ctx, &AuditEvent{
		Action:     "tweet_delete",
		ActorID:    "u2",
		TargetKind: "tweet",
		TargetID:   "t2",
		OwnerID:    "u3",
		Allowed:    false,
		Reason:     "not_authorized",
	})

	m := decodeLine(t, &buf)
	if m["status"] != "declined" || m["level"] != "warn" {
		t.Errorf("declined event logged as %v/%v", m["status"], m["level"])
	}
	if m["component"] != "audit" || m["request_id"] != "req-9" {
		t.Errorf("unexpected fields: %v", m)
	}
}
