// Package logger builds the process-wide logrus logger from configuration.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/config"
)

// New returns a logger writing to stdout. Unknown levels fall back to info.
func New(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
