// Package logging builds the upgrader's structured logger.
//
// Records go through log/slog and fan out to two sinks, each a
// charmbracelet/log logger acting as an slog.Handler:
//
//   - the console (stderr), at info level unless verbose output is requested
//   - a rotated log file under the configured directory, always at debug level
//
// Usage:
//
//	logger, err := logging.New(logging.Config{LogDir: "./logs", Service: "teddy-upgrader"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	logger.Info("Stage 1 of 17 - Validating the installation path...")
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultService names the log file and is attached to file records.
	DefaultService = "teddy-upgrader"
	// DefaultPrefix labels every console and file line.
	DefaultPrefix = "Teddy Upgrader"
	// DefaultMaxAgeDays is how long rotated log files are kept.
	DefaultMaxAgeDays = 14

	timeFormat = "2006-01-02 15:04:05.000"
)

// Config configures the Logger.
type Config struct {
	// Level is the console threshold. The file sink always records debug.
	Level slog.Level
	// LogDir enables file logging when non-empty.
	LogDir string
	// Service names the log file ({service}.log).
	Service string
	// Prefix is printed before every message.
	Prefix string
	// Console receives console output; nil means stderr.
	Console io.Writer
	// Quiet disables console output entirely.
	Quiet bool
	// JSON switches the file sink to JSON lines.
	JSON bool
	// MaxAgeDays bounds rotated file retention; zero means DefaultMaxAgeDays.
	MaxAgeDays int
}

// Logger wraps an slog.Logger and owns the log file.
type Logger struct {
	*slog.Logger
	file     io.WriteCloser
	filePath string
}

// New creates a Logger. The log directory is created if needed.
func New(cfg Config) (*Logger, error) {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = DefaultMaxAgeDays
	}

	l := &Logger{}
	var handlers []slog.Handler

	if !cfg.Quiet {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		handlers = append(handlers, log.NewWithOptions(console, log.Options{
			Level:           log.Level(cfg.Level),
			Prefix:          cfg.Prefix,
			ReportTimestamp: true,
			TimeFormat:      timeFormat,
		}))
	}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.filePath = filepath.Join(cfg.LogDir, cfg.Service+".log")
		l.file = &lumberjack.Logger{
			Filename: l.filePath,
			MaxSize:  10, // megabytes
			MaxAge:   cfg.MaxAgeDays,
		}

		formatter := log.TextFormatter
		if cfg.JSON {
			formatter = log.JSONFormatter
		}
		fileLogger := log.NewWithOptions(l.file, log.Options{
			Level:           log.DebugLevel,
			Prefix:          cfg.Prefix,
			ReportTimestamp: true,
			TimeFormat:      timeFormat,
			Formatter:       formatter,
		})
		handlers = append(handlers, fileLogger)
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.DiscardHandler
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	l.Logger = slog.New(handler)
	return l, nil
}

// FilePath returns the active log file, or "" when file logging is off.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// multiHandler fans out log records to multiple slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers. A failing sink does not
// stop the others.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
