// Package logging builds the logrus loggers used across lanify.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lanify/monitor/internal/config"
)

// New returns a logger configured from cfg. When cfg.File is set, output is
// written through a rotating file; otherwise, or when the file's directory
// cannot be created, it goes to fallback.
// The returned closer releases the file and is safe to call when no file was
// opened.
func New(cfg config.LogConfig, fallback io.Writer) (*logrus.Logger, io.Closer) {
	log := logrus.New()
	log.SetLevel(ParseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: cfg.File != ""})
	}

	if cfg.File == "" {
		log.SetOutput(fallback)
		return log, nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		log.SetOutput(fallback)
		log.WithError(err).WithField("file", cfg.File).Warn("log directory unavailable, logging to fallback")
		return log, nopCloser{}
	}
	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}
	log.SetOutput(w)
	return log, w
}

// DefaultFile is where the terminal client logs when no file is configured.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lanify", "lanify.log")
}

// ParseLevel maps a config level name onto logrus, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
