// Package logging sets up the process-wide slog logger backed by a rotating
// log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFile = "ares.log"

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Config selects the level, record format and destination of the log.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn or error.
	Format string `yaml:"format"` // json or text.
	File   string `yaml:"file"`   // Defaults to ~/.ares/logs/ares.log.
}

// Init configures slog to write structured records to a rotating file and
// installs the result as the default logger. Records are also copied to every
// writer in tee. The returned closer releases the log file.
func Init(cfg Config, tee ...io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger := slog.New(newHandler(cfg.Format, io.MultiWriter(tee...), opts))
		slog.SetDefault(logger)
		return logger, nopCloser{}, err
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	var out io.Writer = file
	if len(tee) > 0 {
		out = io.MultiWriter(append([]io.Writer{file}, tee...)...)
	}

	logger := slog.New(newHandler(cfg.Format, out, opts))
	slog.SetDefault(logger)
	return logger, file, nil
}

// DefaultPath returns the log file used when none is configured.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(".ares", "logs", defaultLogFile)
	}
	return filepath.Join(home, ".ares", "logs", defaultLogFile)
}

// ParseLevel maps a level name onto a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is empty or a known level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether format is empty, json or text.
func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json", "text":
		return true
	}
	return false
}

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
