// Package logging provides the leveled logger shared by the engine and the shell.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log levels
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes "timestamp [LEVEL] [pid] message" lines
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  string
	closer io.Closer
}

// New creates a logger writing to w at info level
func New(w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  LevelInfo,
	}
}

// NewFile creates a logger that appends to the file at logPath
func NewFile(logPath string) (*Logger, error) {
	if strings.HasPrefix(logPath, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			logPath = filepath.Join(home, logPath[2:])
		}
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	l := New(f)
	l.closer = f
	return l, nil
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard)
}

// Close closes the underlying file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// SetLevel sets the minimum level; unknown levels fall back to info
func (l *Logger) SetLevel(level string) {
	level = strings.ToUpper(level)
	if _, ok := levelRank[level]; !ok {
		level = LevelInfo
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current minimum level
func (l *Logger) Level() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) shouldLog(level string) bool {
	return levelRank[level] >= levelRank[l.Level()]
}

func (l *Logger) log(level, message string) {
	if l == nil || !l.shouldLog(level) {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("%s [%s] [%d] %s", timestamp, level, os.Getpid(), message)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}
