package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterDefaultsAndWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	c := Config{Path: path}
	w := c.Writer()
	if w.MaxSize != DefaultMaxSizeMB || w.MaxBackups != DefaultMaxBackups || w.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("defaults not applied: %+v", w)
	}
	if _, err := w.Write([]byte("Starting ChromeDriver\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(b), "ChromeDriver") {
		t.Fatalf("log content: %q", b)
	}
}

func TestWriterExplicitRotation(t *testing.T) {
	c := Config{Path: "x.log", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 2, Compress: true}
	w := c.Writer()
	if w.MaxSize != 1 || w.MaxBackups != 9 || w.MaxAge != 2 || !w.Compress {
		t.Fatalf("explicit rotation not honored: %+v", w)
	}
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	content := "line1\nline2\nline3\nline4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := Tail(path, 2)
	if got != "line3\nline4" {
		t.Fatalf("Tail: %q", got)
	}
	if all := Tail(path, 100); all != "line1\nline2\nline3\nline4" {
		t.Fatalf("Tail over-request: %q", all)
	}
}

func TestTailMissingFile(t *testing.T) {
	if got := Tail(filepath.Join(t.TempDir(), "nope.log"), 5); got != "" {
		t.Fatalf("expected empty tail, got %q", got)
	}
}

func TestColorTextHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	log := slog.New(h)
	log.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "\033[32m") || !strings.Contains(out, "hello") {
		t.Fatalf("info output not colorized: %q", out)
	}

	buf.Reset()
	_ = h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0))
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Fatalf("error output not colorized: %q", buf.String())
	}
}
