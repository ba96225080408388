package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	if logLevel == "" {
		if isDevelopment {
			logLevel = "debug"
		} else {
			logLevel = "info"
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	// JSON in production, colored text for local work
	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithComponent creates an entry tagged with the emitting component. A nil
// base falls back to the global logger.
func WithComponent(base *logrus.Logger, component string) *logrus.Entry {
	return orGlobal(base).WithField("component", component)
}

// WithProvider creates an entry for an upstream provider call
func WithProvider(base *logrus.Logger, provider, url string) *logrus.Entry {
	return orGlobal(base).WithFields(logrus.Fields{
		"component": "provider",
		"provider":  provider,
		"url":       url,
	})
}

// WithRequestID creates an http entry carrying the request id
func WithRequestID(base *logrus.Logger, requestID string) *logrus.Entry {
	return orGlobal(base).WithFields(logrus.Fields{
		"component":  "http",
		"request_id": requestID,
	})
}

func orGlobal(base *logrus.Logger) *logrus.Logger {
	if base == nil {
		return GetLogger()
	}
	return base
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
