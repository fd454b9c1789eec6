package logs

import (
	"os"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	l := New("debug", dir)
	l.Infof("remapped %d columns", 42)

	data, err := os.ReadFile(l.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "remapped 42 columns") {
		t.Errorf("expected log entry, got %q", string(data))
	}
}

func TestLevelFilter(t *testing.T) {
	dir := t.TempDir()
	l := New("warn", dir)
	l.Debugf("hidden %s", "detail")
	l.Warnf("kept %s", "warning")

	data, err := os.ReadFile(l.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden detail") {
		t.Error("expected debug entry to be filtered")
	}
	if !strings.Contains(string(data), "kept warning") {
		t.Error("expected warning entry to be written")
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Debugf("no %s", "panic")
	l.Infof("no %s", "panic")
	l.Warnf("no %s", "panic")
	l.Errorf("no %s", "panic")
}
