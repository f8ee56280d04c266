package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"scenewatch/internal/config"
)

// Logger provides leveled logging (info/warning/error) to a log file and
// stdout.
type Logger struct {
	log    *logrus.Logger
	logDir string
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logFile := filepath.Join(config.LogDirectory, "server.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		l.Warnf("Failed to open log file %s, logging to stdout only", logFile)
	} else {
		l.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return &Logger{log: l, logDir: config.LogDirectory}
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}
