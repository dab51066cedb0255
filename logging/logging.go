// Package logging provides the log manager behind kickstart applications.
//
// A Manager owns the active level and a set of appenders. Named loggers
// obtained from the manager tag every record with their name and fan it out to
// each appender whose level allows it. A manager without appenders is silent.
package logging

import (
	"strings"
	"sync"
)

// Level represents the severity threshold of the manager.
type Level int

const (
	// LevelDebug is for detailed diagnostic information.
	LevelDebug Level = iota
	// LevelInfo is for normal lifecycle messages.
	LevelInfo
	// LevelWarn is for unusual conditions.
	LevelWarn
	// LevelError is for failures.
	LevelError
	// LevelNone disables all output.
	LevelNone
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none", "off":
		return LevelNone
	default:
		return LevelInfo
	}
}

// Logger is the structured key/value logging surface shared by appenders and
// named loggers.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Manager fans log records out to appenders.
type Manager struct {
	mu        sync.RWMutex
	level     Level
	appenders []Logger
}

// NewManager creates a manager at level with the given appenders.
func NewManager(level Level, appenders ...Logger) *Manager {
	return &Manager{
		level:     level,
		appenders: append([]Logger(nil), appenders...),
	}
}

// AddAppender adds an appender. Records already emitted are not replayed.
func (m *Manager) AddAppender(appender Logger) {
	if appender == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appenders = append(m.appenders, appender)
}

// Appenders returns the number of registered appenders.
func (m *Manager) Appenders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.appenders)
}

// SetLevel changes the threshold for every logger obtained from m.
func (m *Manager) SetLevel(level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

// Level returns the current threshold.
func (m *Manager) Level() Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// Logger returns a logger tagging each record with "logger"=name.
func (m *Manager) Logger(name string) Logger {
	return &namedLogger{manager: m, name: name}
}

func (m *Manager) emit(level Level, msg string, args []any) {
	m.mu.RLock()
	if level < m.level || len(m.appenders) == 0 {
		m.mu.RUnlock()
		return
	}
	appenders := append([]Logger(nil), m.appenders...)
	m.mu.RUnlock()

	for _, appender := range appenders {
		switch level {
		case LevelDebug:
			appender.Debug(msg, args...)
		case LevelInfo:
			appender.Info(msg, args...)
		case LevelWarn:
			appender.Warn(msg, args...)
		case LevelError:
			appender.Error(msg, args...)
		}
	}
}

type namedLogger struct {
	manager *Manager
	name    string
}

func (l *namedLogger) withName(args []any) []any {
	combined := make([]any, 0, len(args)+2)
	combined = append(combined, "logger", l.name)
	return append(combined, args...)
}

func (l *namedLogger) Info(msg string, args ...any) {
	l.manager.emit(LevelInfo, msg, l.withName(args))
}

func (l *namedLogger) Error(msg string, args ...any) {
	l.manager.emit(LevelError, msg, l.withName(args))
}

func (l *namedLogger) Warn(msg string, args ...any) {
	l.manager.emit(LevelWarn, msg, l.withName(args))
}

func (l *namedLogger) Debug(msg string, args ...any) {
	l.manager.emit(LevelDebug, msg, l.withName(args))
}
