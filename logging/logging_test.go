package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingWriter struct{}

func (fw *failingWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func TestHoldAndRelease(t *testing.T) {
	var console bytes.Buffer
	if err := Init(Options{Level: "DEBUG", Format: "text", Console: &console}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("Live log")
	if !strings.Contains(console.String(), "Live log") {
		t.Errorf("Expected live log on console, got: %s", console.String())
	}

	Hold()
	slog.Info("Held log")
	if strings.Contains(console.String(), "Held log") {
		t.Errorf("Expected log to be held, but it reached the console: %s", console.String())
	}

	if err := Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !strings.Contains(console.String(), "Held log") {
		t.Errorf("Expected held log to be flushed on release, got: %s", console.String())
	}
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestFileLoggingJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	var console bytes.Buffer
	if err := Init(Options{Level: "INFO", Format: "json", File: logFile, Console: &console}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Hold()
	slog.Info("Frame sent", "index", 2)
	slog.Debug("Filtered out")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"Frame sent"`) || !strings.Contains(string(content), `"index":2`) {
		t.Errorf("Expected JSON log in file, got: %s", string(content))
	}
	if strings.Contains(string(content), "Filtered out") {
		t.Errorf("Debug record should be filtered at INFO level, got: %s", string(content))
	}
	if !strings.Contains(console.String(), "Frame sent") {
		t.Errorf("Expected held output to be flushed to console on close, got: %s", console.String())
	}
}

func TestInit_BadFile(t *testing.T) {
	err := Init(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Fatal("Expected error for unwritable log file")
	}
}

func TestReleaseErrorPropagation(t *testing.T) {
	if err := Init(Options{Console: &failingWriter{}}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Hold()
	slog.Info("This should fail on flush")
	if err := Release(); err == nil {
		t.Error("Expected release to report the console write error")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
