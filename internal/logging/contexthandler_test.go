package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
)

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelDebug)

	parent := logging.WithAttrs(context.Background(), slog.String("user_id", "u-1"))
	first := logging.WithAttrs(parent, slog.String("run_id", "first"))
	second := logging.WithAttrs(parent, slog.String("run_id", "second"))

	logger.LogAttrs(first, slog.LevelInfo, "generated day")
	logger.LogAttrs(second, slog.LevelInfo, "generated day")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "user_id=u-1") || !strings.Contains(lines[0], "run_id=first") {
		t.Errorf("first line missing context attributes: %s", lines[0])
	}
	if strings.Contains(lines[1], "run_id=first") || !strings.Contains(lines[1], "run_id=second") {
		t.Errorf("sibling contexts leaked attributes: %s", lines[1])
	}
	if got := len(logging.Attrs(parent)); got != 1 {
		t.Errorf("parent context has %d attributes, want 1", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn)
	logger.LogAttrs(context.Background(), slog.LevelDebug, "excluded candidate")
	if buf.Len() != 0 {
		t.Errorf("expected debug record to be filtered, got %q", buf.String())
	}
}
