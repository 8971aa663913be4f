// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer and
// restores the previous logger and level when the test ends.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got %q", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps on by default")
	}
}

func TestInit(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})

	Debug().Str("class", "music").Msg("queued")

	out := buf.String()
	if !strings.Contains(out, `"message":"queued"`) {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"class":"music"`) {
		t.Errorf("expected field in output, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{" warn ", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, l := range []string{"debug", "INFO", "warn", "disabled"} {
		if !ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = false", l)
		}
	}
	for _, l := range []string{"", "verbose", "panic"} {
		if ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = true", l)
		}
	}
}

func TestLevelFunctions(t *testing.T) {
	buf := captureGlobal(t)

	Debug().Msg("d")
	Info().Msg("i")
	Warn().Msg("w")
	Error().Msg("e")
	Err(errors.New("boom")).Msg("x")

	out := buf.String()
	for _, want := range []string{`"level":"debug"`, `"level":"info"`, `"level":"warn"`, `"level":"error"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestGlobalLevelFilters(t *testing.T) {
	buf := captureGlobal(t)

	zerolog.SetGlobalLevel(parseLevel("warn"))
	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn missing: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)

	l := WithComponent("queue")
	l.Info().Msg("started")

	if !strings.Contains(buf.String(), `"component":"queue"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value, want string
	}{
		{"api_key", "sk-live-0123456789abcdef", "sk-l...cdef"},
		{"X-API-Key", "short", "***"},
		{"token", "", ""},
		{"channel", "UC123", "UC123"},
	}
	for _, tt := range tests {
		if got := RedactValue(tt.key, tt.value); got != tt.want {
			t.Errorf("RedactValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}
