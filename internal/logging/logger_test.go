package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsStageLines(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("stage started", String(FieldComponent, "pipeline"), String(FieldStage, "Audio"))

	line := buf.String()
	if !strings.Contains(line, "[pipeline]") {
		t.Fatalf("expected component marker in %q", line)
	}
	if !strings.Contains(line, "Audio:") {
		t.Fatalf("expected stage prefix in %q", line)
	}
	if !strings.Contains(line, "stage started") {
		t.Fatalf("expected message in %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("ignored")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "ignored") {
		t.Fatalf("info line should be suppressed: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := WithRunKey(context.Background(), "abc123")
	ctx = WithStage(ctx, "Metadata")
	WithContext(ctx, base).Info("hello")

	line := buf.String()
	if !strings.Contains(line, "abc123") {
		t.Fatalf("expected run key in %q", line)
	}
	if !strings.Contains(line, "Metadata:") {
		t.Fatalf("expected stage in %q", line)
	}
}

func TestNewRejectsStdout(t *testing.T) {
	if _, err := New(Options{OutputPaths: []string{"stdout"}}); err == nil {
		t.Fatal("expected error for stdout log output")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
