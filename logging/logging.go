package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// teeWriter sends log output to a console writer and optionally a
// file. While held, console output is kept in memory so a full screen
// TUI isn't overwritten; the file keeps receiving everything.
type teeWriter struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	held    bytes.Buffer
	holding bool
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.holding {
		w.held.Write(p)
	} else if w.console != nil {
		if _, err := w.console.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

// Options selects level, format and destinations of the default logger.
type Options struct {
	Level   string
	Format  string
	File    string
	Console io.Writer
}

var writer *teeWriter

// ParseLevel maps DEBUG, INFO, WARN and ERROR to slog levels. Anything
// else is INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs a new default slog logger. Console defaults to stderr.
func Init(o Options) error {
	console := o.Console
	if console == nil {
		console = os.Stderr
	}
	w := &teeWriter{console: console}
	if o.File != "" {
		file, err := os.OpenFile(o.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		w.file = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(o.Level)}
	var handler slog.Handler
	if strings.ToLower(o.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	writer = w
	slog.SetDefault(slog.New(handler))
	return nil
}

// Hold keeps console output in memory until Release or Close.
func Hold() {
	if writer == nil {
		return
	}
	writer.mu.Lock()
	writer.holding = true
	writer.mu.Unlock()
}

// Release writes held output to the console and resumes live output.
func Release() error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()
	writer.holding = false
	return writer.flush()
}

// Close flushes held output and closes the log file.
func Close() error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	firstErr := writer.flush()
	if writer.file != nil {
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		writer.file = nil
	}
	return firstErr
}

// flush must be called with mu held.
func (w *teeWriter) flush() error {
	defer w.held.Reset()
	if w.held.Len() == 0 || w.console == nil {
		return nil
	}
	_, err := w.console.Write(w.held.Bytes())
	return err
}
