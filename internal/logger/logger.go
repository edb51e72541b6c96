package logger

import (
	"os"

	"github.com/sirupsen/logrus"

	"equilibra/internal/config"
)

// Init configures the process-wide logrus logger from config.
func Init(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
