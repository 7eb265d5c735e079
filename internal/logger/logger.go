package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the supervisor's own log file.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the supervisor's own structured log output.
// With File empty, colored text goes to stderr; otherwise JSON records go to
// a rotating file. Rotation parameters follow lumberjack semantics.
//
// Child process output never goes through slog; see OpenServiceLog.
type Config struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// New builds a *slog.Logger from the config.
func (c Config) New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.File == "" {
		return slog.New(NewColorTextHandler(os.Stderr, opts))
	}
	var w io.Writer = &lj.Logger{
		Filename:   c.File,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ServiceLogPath returns the combined stdout/stderr sink path for a service.
func ServiceLogPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.log", name))
}

// OpenServiceLog opens (creating as needed) the append-only sink a launched
// child inherits. It must be a plain file descriptor: the child keeps writing
// to it long after the supervisor invocation that opened it has exited, so a
// rotating writer living in this process would not do.
func OpenServiceLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G304
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
