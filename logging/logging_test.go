package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.SetLevel("warn")
	l.Infof("hidden %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("filtered message was written: %q", out)
	}
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "shown 2") {
		t.Errorf("info line missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "shown 4") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := Discard()
	l.SetLevel("chatty")
	if got := l.Level(); got != LevelInfo {
		t.Errorf("Level() = %q, want %q", got, LevelInfo)
	}
}

func TestNewFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "far.log")

	for i := 0; i < 2; i++ {
		l, err := NewFile(path)
		if err != nil {
			t.Fatalf("NewFile: %v", err)
		}
		l.Infof("run %d", i)
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("got %d lines, want 2:\n%s", n, data)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("nothing")
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}
}
