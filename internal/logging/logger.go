// Package logging provides structured logging for ChatWire on top of
// log/slog. The terminal UI owns stdout, so the default sink is a log file
// under the user cache directory; sensitive attributes are redacted before
// they reach any sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel represents the severity of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger wraps slog with a component tag and domain-specific helpers
type Logger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
}

// Config represents logging configuration
type Config struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", or file path
	Component string
}

// DefaultConfig returns the standard logging configuration: text format at
// info level, written to a file so the TUI keeps the terminal to itself.
func DefaultConfig() Config {
	output := "stderr"
	if cacheDir, err := os.UserCacheDir(); err == nil {
		output = filepath.Join(cacheDir, "chatwire", "chatwire.log")
	}
	return Config{
		Level:     InfoLevel,
		Format:    "text",
		Output:    output,
		Component: "chatwire",
	}
}

// NewLogger creates a logger writing to the configured sink
func NewLogger(config Config) (*Logger, error) {
	sink, err := openSink(config.Output)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel(config.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if isSensitiveKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			return a
		},
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(sink, opts)
	} else {
		handler = slog.NewTextHandler(sink, opts)
	}

	return &Logger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
	}, nil
}

// openSink resolves the configured output to a writer, creating parent
// directories for file sinks.
func openSink(output string) (io.Writer, error) {
	switch output {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return file, nil
}

// isSensitiveKey identifies attribute keys whose values must never be logged
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return lower == "token" || strings.Contains(lower, "password")
}

// slogLevel converts our LogLevel to slog.Level
func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent creates a child logger tagged with a component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.String("component", component)),
		level:     l.level,
		component: component,
	}
}

// WithField creates a child logger carrying one extra attribute
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.Any(key, value)),
		level:     l.level,
		component: l.component,
	}
}

// Debug logs a debug level message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(msg, args...)
}

// Info logs an info level message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning level message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, args...)
}

// Error logs an error level message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, args...)
}

// LogConnectionAttempt logs connection attempt details
func (l *Logger) LogConnectionAttempt(url string, authType string) {
	l.Info("Attempting connection",
		slog.String("url", url),
		slog.String("auth_type", authType),
		slog.Time("timestamp", time.Now()))
}

// LogConnectionEstablished logs a completed handshake
func (l *Logger) LogConnectionEstablished(connectionID string, authenticated bool) {
	l.Info("Connection established",
		slog.String("connection_id", connectionID),
		slog.Bool("authenticated", authenticated))
}

// LogConnectionFailure logs a failed connection attempt
func (l *Logger) LogConnectionFailure(url string, err error) {
	l.Error("Connection failed",
		slog.String("url", url),
		slog.String("error", err.Error()))
}

// LogReconnectScheduled logs the next reconnection attempt
func (l *Logger) LogReconnectScheduled(attempt int, delay time.Duration) {
	l.Info("Reconnect scheduled",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))
}

// LogFrameDropped logs an inbound frame that could not be decoded
func (l *Logger) LogFrameDropped(reason string) {
	l.Debug("Inbound frame dropped",
		slog.String("reason", reason))
}

// LogConfigLoad logs configuration loading operations
func (l *Logger) LogConfigLoad(configPath string, profileName string) {
	l.Debug("Loading configuration",
		slog.String("config_path", configPath),
		slog.String("profile", profileName))
}

// LogConfigError logs configuration-related errors
func (l *Logger) LogConfigError(operation string, err error) {
	l.Error("Configuration error",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
}

// LogAuthOperation logs authentication-related operations
func (l *Logger) LogAuthOperation(operation string, authType string) {
	l.Debug("Authentication operation",
		slog.String("operation", operation),
		slog.String("auth_type", authType))
}

// LogUIStateChange logs user interface state transitions
func (l *Logger) LogUIStateChange(from string, to string, reason string) {
	l.Debug("UI state change",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason))
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger with the specified configuration
func InitGlobalLogger(config Config) error {
	logger, err := NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize global logger: %w", err)
	}
	globalLogger = logger
	return nil
}

// GetGlobalLogger returns the global logger, initializing it with defaults on
// first use. When the default log file cannot be created, stderr is used.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		logger, err := NewLogger(DefaultConfig())
		if err != nil {
			logger, _ = NewLogger(Config{Level: InfoLevel, Format: "text", Output: "stderr"})
		}
		globalLogger = logger
	}
	return globalLogger
}

// Component-specific logger creators
func GetSessionLogger() *Logger {
	return GetGlobalLogger().WithComponent("session")
}

func GetTransportLogger() *Logger {
	return GetGlobalLogger().WithComponent("transport")
}

func GetConfigLogger() *Logger {
	return GetGlobalLogger().WithComponent("config")
}

func GetAuthLogger() *Logger {
	return GetGlobalLogger().WithComponent("auth")
}

func GetUILogger() *Logger {
	return GetGlobalLogger().WithComponent("ui")
}

func GetHistoryLogger() *Logger {
	return GetGlobalLogger().WithComponent("history")
}
