package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes the global logger. If logFilePath is non-empty, logs are
// written to both stdout and the file. level can be "debug", "info", "warn", "error".
func Init(logFilePath, level string) (func(), error) {
	return InitWriter(os.Stdout, logFilePath, level)
}

// InitWriter is Init with an explicit console writer (stderr for the CLI so
// command output stays clean).
func InitWriter(console io.Writer, logFilePath, level string) (func(), error) {
	zerolog.SetGlobalLevel(parseLevel(level))

	writers := []io.Writer{console}
	var f *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	multi := io.MultiWriter(writers...)
	Log = zerolog.New(multi).With().Timestamp().Logger()
	return func() {
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Log is the package-global logger configured by Init
var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Get returns a pointer to the package-global logger
func Get() *zerolog.Logger {
	return &Log
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// Redact shortens a secret (session or push token) for log output.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "…" + secret[len(secret)-4:]
}
