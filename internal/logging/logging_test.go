package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "askweb.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	New("chat").Printf("session %s: reuse", "abc")
	_ = Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[CHAT] ") || !strings.Contains(string(data), "session abc: reuse") {
		t.Fatalf("unexpected log content: %s", data)
	}
}

func TestNewFollowsStandardOutput(t *testing.T) {
	orig := log.Writer()
	t.Cleanup(func() { log.SetOutput(orig) })

	logger := New(" retrieve ")
	var buf bytes.Buffer
	log.SetOutput(&buf)
	logger.Print("hello")

	if !strings.HasPrefix(buf.String(), "[RETRIEVE] ") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected prefixed line, got %q", buf.String())
	}
}

func TestCloseWithoutInit(t *testing.T) {
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
