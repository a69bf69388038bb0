package zipdex

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with zipdex-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithCountry adds a country field to the logger.
func (l *Logger) WithCountry(country string) *Logger {
	return &Logger{
		Logger: l.Logger.With("country", country),
	}
}

// LogCorruptRecord logs a record that pointed at undecodable bytes.
// The lookup itself reports absence; the log line is the only trace.
func (l *Logger) LogCorruptRecord(key string, err error) {
	l.Warn("corrupt record treated as not found",
		"key", key,
		"error", err,
	)
}

// LogOpen logs engine construction.
func (l *Logger) LogOpen(countries []string, entries int) {
	l.Info("engine opened",
		"countries", countries,
		"entries", entries,
	)
}
