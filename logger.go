package kickstart

// Logger defines the interface for framework logging.
// It uses structured key/value pairs, the same surface the logging package's
// manager and appenders expose:
//
//	logger.Info("Loading plugin", "moduleId", "p1")
//
// Any slog, zap or logrus adapter with these four methods satisfies it.
type Logger interface {
	// Info logs normal lifecycle events such as start and plugin activation.
	Info(msg string, args ...any)

	// Error logs failures surfaced to the caller.
	Error(msg string, args ...any)

	// Warn logs unusual conditions that don't prevent startup.
	Warn(msg string, args ...any)

	// Debug logs per-plugin detail, typically enabled by development logging.
	Debug(msg string, args ...any)
}
