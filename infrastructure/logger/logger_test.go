package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	lg, err := New(Config{Level: "info", Format: "json", ToFile: true, OutputFile: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("hello from test")
	_ = lg.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "hello from test") {
		t.Fatalf("log content: %q", raw)
	}
}

func TestWithFields(t *testing.T) {
	lg, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	child := lg.WithFields(map[string]interface{}{"symbol": "BTC/USDT-P"})
	if child == nil || child.Logger == nil {
		t.Fatal("child logger missing")
	}
}
