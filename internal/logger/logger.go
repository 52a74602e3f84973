// Package logger provides a simple logging interface for hadeploy components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation. The default
// implementation is backed by logrus and writes to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// DebugEnv turns on debug output when set to any non-empty value.
const DebugEnv = "HADEPLOY_DEBUG"

var (
	debugMu      sync.RWMutex
	debugEnabled bool
	secrets      []string
)

// EnableDebug forces debug output on regardless of DebugEnv (used by --verbose).
func EnableDebug(on bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugEnabled = on
}

func debugOn() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled || os.Getenv(DebugEnv) != ""
}

// RegisterSecret records a value (token, password) that must never appear in
// log output. Registered values are replaced with "***" by every logger in
// this package.
func RegisterSecret(s string) {
	if s == "" {
		return
	}
	debugMu.Lock()
	defer debugMu.Unlock()
	secrets = append(secrets, s)
}

// Redact replaces every registered secret in s.
func Redact(s string) string {
	debugMu.RLock()
	defer debugMu.RUnlock()
	for _, secret := range secrets {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}

// envLogger implements Logger on top of logrus.
// Debug messages are only printed when HADEPLOY_DEBUG is set or EnableDebug(true) was called.
type envLogger struct {
	prefix string
	log    *logrus.Logger
}

// NewEnvLogger creates a logger that writes to stderr.
// The prefix is prepended to all log messages (e.g., "[deploy]" or "[ssh]").
func NewEnvLogger(prefix string) Logger {
	return NewLogrusLogger(os.Stderr, prefix)
}

// NewLogrusLogger creates a logger writing logrus text records to w.
func NewLogrusLogger(w io.Writer, prefix string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	return &envLogger{prefix: prefix, log: l}
}

func (l *envLogger) format(format string, args ...interface{}) string {
	msg := Redact(fmt.Sprintf(format, args...))
	if l.prefix == "" {
		return msg
	}
	return l.prefix + " " + msg
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if debugOn() {
		l.log.Debug(l.format(format, args...))
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.log.Info(l.format(format, args...))
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.log.Warn(l.format(format, args...))
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.log.Error(l.format(format, args...))
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: Redact(fmt.Sprintf(format, args...))})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains reports whether any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}
