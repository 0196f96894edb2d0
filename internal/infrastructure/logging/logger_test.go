package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"json to stdout", config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}},
		{"text to stderr", config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}},
		{"empty config falls back to defaults", config.LoggingConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if logger := New(tt.cfg, "1.0.0"); logger == nil {
				t.Fatal("New() returned nil")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_With(t *testing.T) {
	logger := Default()
	child := logger.With("component", "scheduler")
	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == logger {
		t.Error("With() returned the parent logger")
	}
}

func TestLogger_RecordShape(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{
			slog.String("service", "devicelink"),
			slog.String("version", "test"),
		})

	logger := &Logger{Logger: slog.New(handler)}
	logger.Info("device connected", "device_id", "dev-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}

	for key, want := range map[string]string{
		"service":   "devicelink",
		"version":   "test",
		"msg":       "device connected",
		"device_id": "dev-1",
	} {
		if record[key] != want {
			t.Errorf("record[%q] = %v, want %q", key, record[key], want)
		}
	}
}
