package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init routes the standard logger to stdout and, when logPath is set, to an append-only file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stdout}
	if logPath = strings.TrimSpace(logPath); logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close restores stderr output and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// New returns a component logger writing through the standard logger's output,
// e.g. New("chat") prefixes lines with "[CHAT] ".
func New(component string) *log.Logger {
	return log.New(writer{}, "["+strings.ToUpper(strings.TrimSpace(component))+"] ", log.LstdFlags)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *log.Logger { return log.New(io.Discard, "", 0) }

// writer forwards to whatever the standard logger currently writes to, so
// loggers created before Init still follow the configured output.
type writer struct{}

func (writer) Write(p []byte) (int, error) { return log.Writer().Write(p) }
