package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a configured logrus.Logger writing to stdout. JSON output is the
// default to keep logs structured; format "text" switches to the console formatter.
func New(env, level, format string) *logrus.Logger {
	return NewWithWriter(os.Stdout, env, level, format)
}

func NewWithWriter(w io.Writer, env, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(parseLevel(env, level))
	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}
	return log
}

// parseLevel honours an explicit level and otherwise logs debug for local/dev environments.
func parseLevel(env, level string) logrus.Level {
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			return lvl
		}
	}
	if strings.ToLower(env) == "local" || strings.ToLower(env) == "dev" {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}
