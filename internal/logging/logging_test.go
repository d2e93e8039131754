package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{name: "Debug level JSON format", level: LevelDebug, format: FormatJSON},
		{name: "Info level JSON format", level: LevelInfo, format: FormatJSON},
		{name: "Warn level JSON format", level: LevelWarn, format: FormatJSON},
		{name: "Error level JSON format", level: LevelError, format: FormatJSON},
		{name: "Info level Text format", level: LevelInfo, format: FormatText},
		{name: "Default level (invalid value)", level: Level(999), format: FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if defaultLogger == nil {
				t.Error("InitLogger left defaultLogger nil")
			}
			if GetLogger() != defaultLogger {
				t.Error("GetLogger should return the global logger")
			}
		})
	}

	// Restore defaults for the rest of the suite.
	InitLogger(LevelInfo, FormatText)
}

func TestBasicHelpers(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{name: "Debug", log: func() { Debug("debug msg", "k", "v") }, want: "debug msg"},
		{name: "Info", log: func() { Info("info msg", "k", "v") }, want: "info msg"},
		{name: "Warn", log: func() { Warn("warn msg") }, want: "warn msg"},
		{name: "Error", log: func() { Error("error msg") }, want: "error msg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureLogOutput(tt.log)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
		})
	}
}

func TestRunIDContext(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")

	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID = %q, want run-123", got)
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID on empty context = %q, want empty", got)
	}

	out := captureLogOutput(func() {
		InfoContext(ctx, "ctx msg")
	})
	if !strings.Contains(out, "run-123") {
		t.Errorf("context logger output %q missing run ID", out)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-ctx")

	tests := []struct {
		name string
		log  func()
	}{
		{name: "DebugContext", log: func() { DebugContext(ctx, "dc") }},
		{name: "InfoContext", log: func() { InfoContext(ctx, "ic") }},
		{name: "WarnContext", log: func() { WarnContext(ctx, "wc") }},
		{name: "ErrorContext", log: func() { ErrorContext(ctx, "ec") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureLogOutput(tt.log)
			if !strings.Contains(out, "run-ctx") {
				t.Errorf("output %q missing run ID", out)
			}
		})
	}
}

func TestDocumentOpened(t *testing.T) {
	out := captureLogOutput(func() {
		DocumentOpened("/tmp/paper.pages", 42)
	})
	for _, want := range []string{"document_opened", "/tmp/paper.pages", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestProcessingRun(t *testing.T) {
	out := captureLogOutput(func() {
		ProcessingRun("/tmp/paper.pages", 3, 7, 3, 150*time.Millisecond, "order", "citation-first")
	})
	for _, want := range []string{"processing_run", "labels", "citations", "references", "duration_ms", "citation-first"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestProcessingError(t *testing.T) {
	out := captureLogOutput(func() {
		ProcessingError("/tmp/paper.pages", "rewrite", errors.New("boom"))
	})
	for _, want := range []string{"processing_error", "rewrite", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestBackupCreated(t *testing.T) {
	out := captureLogOutput(func() {
		BackupCreated("/tmp/paper.pages", "/tmp/backups/paper.tar.xz", "tar.xz")
	})
	for _, want := range []string{"backup_created", "tar.xz"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestHistoryRecorded(t *testing.T) {
	out := captureLogOutput(func() {
		HistoryRecorded("abc-def", "/tmp/paper.pages")
	})
	for _, want := range []string{"history_recorded", "abc-def"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
