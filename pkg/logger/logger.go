package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process-wide logger. JSON output in production so log
// shippers can index fields; text locally.
func New(level, environment string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
