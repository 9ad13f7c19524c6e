package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggerAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	l.Info("cycle %d started", 7)
	l.Error("apply failed: %s", "boom")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	// reopening must append, not truncate
	l2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger (reopen): %v", err)
	}
	l2.Warning("retry %d", 2)
	if err := l2.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"[INFO] cycle 7 started",
		"[ERROR] apply failed: boom",
		"[WARNING] retry 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log file missing %q:\n%s", want, out)
		}
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	l, err := NewFileLogger(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first Close() = %v, want nil", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() = %v, want nil", err)
	}
}
