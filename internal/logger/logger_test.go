package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type logRecord struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Component string `json:"component"`
}

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := Logger
	Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { Logger = original })
	return &buf
}

func TestLevels(t *testing.T) {
	buf := captureJSON(t)

	tests := []struct {
		name  string
		fn    func(msg string, args ...any)
		level string
	}{
		{"Info", Info, "INFO"},
		{"Error", Error, "ERROR"},
		{"Warn", Warn, "WARN"},
		{"Debug", Debug, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn("message " + tt.name)

			var rec logRecord
			if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
				t.Fatalf("failed to unmarshal log output: %v", err)
			}
			if rec.Msg != "message "+tt.name {
				t.Errorf("msg = %q", rec.Msg)
			}
			if rec.Level != tt.level {
				t.Errorf("level = %q, want %q", rec.Level, tt.level)
			}
		})
	}
}

func TestWith(t *testing.T) {
	buf := captureJSON(t)

	With("component", "ledger").Info("saved")

	var rec logRecord
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("failed to unmarshal log output: %v", err)
	}
	if rec.Component != "ledger" {
		t.Errorf("component = %q, want ledger", rec.Component)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWritesToFile(t *testing.T) {
	original := Logger
	t.Cleanup(func() {
		Close()
		Logger = original
	})

	path := filepath.Join(t.TempDir(), "logs", "ult.log")
	if err := Init("warn", path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info("hidden")
	Warn("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn message missing from log file")
	}
}
