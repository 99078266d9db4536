// Package logger builds the structured logger used across the service.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and outputs of the logger.
type Config struct {
	Level  string     `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string     `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File   FileConfig `mapstructure:"file"`
	// Sentry forwards records at SentryLevel and above to the current Sentry hub.
	Sentry      bool   `mapstructure:"sentry"`
	SentryLevel string `mapstructure:"sentry_level" validate:"omitempty,oneof=debug info warn error"`
}

// FileConfig enables a rotated log file next to stdout.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// Logger wraps slog.Logger with a mutable level and owned outputs.
type Logger struct {
	*slog.Logger
	level   *slog.LevelVar
	closers []io.Closer
}

// New creates a Logger writing to stdout.
func New(cfg Config) (*Logger, error) {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter creates a Logger writing to w plus the outputs enabled in cfg.
func NewWithWriter(w io.Writer, cfg Config) (*Logger, error) {
	level := new(slog.LevelVar)
	if err := setLevel(level, cfg.Level); err != nil {
		return nil, err
	}

	l := &Logger{level: level}
	handlers := []slog.Handler{newHandler(w, cfg.Format, level)}

	if cfg.File.Path != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		l.closers = append(l.closers, rotated)
		handlers = append(handlers, newHandler(rotated, "json", level))
	}

	if cfg.Sentry {
		sentryLevel := slog.LevelError
		if cfg.SentryLevel != "" {
			if err := sentryLevel.UnmarshalText([]byte(cfg.SentryLevel)); err != nil {
				return nil, fmt.Errorf("parse sentry level: %w", err)
			}
		}
		handlers = append(handlers, slogsentry.Option{Level: sentryLevel}.NewSentryHandler())
	}

	var root slog.Handler = handlers[0]
	if len(handlers) > 1 {
		root = newTeeHandler(handlers...)
	}

	l.Logger = slog.New(NewMaskingHandler(root))
	return l, nil
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) error {
	return setLevel(l.level, level)
}

// Level reports the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases file outputs.
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func setLevel(v *slog.LevelVar, level string) error {
	if level == "" {
		v.Set(slog.LevelInfo)
		return nil
	}

	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	v.Set(parsed)
	return nil
}

func newHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
