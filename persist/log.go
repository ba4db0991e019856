package persist

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger writing to a single file (and optionally to
// stderr), bracketing its lifetime with STARTUP/SHUTDOWN markers the way an
// operator greps a log file to confirm a clean restart.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// NewFileLogger returns a logger that logs to logFilename. component
// identifies the subsystem (e.g. "walletd-sync") on the STARTUP line only;
// later lines do not carry it. verbose also mirrors output to stderr.
func NewFileLogger(component, logFilename string, verbose bool) (*Logger, error) {
	file, err := os.OpenFile(logFilename, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660)
	if err != nil {
		return nil, err
	}

	var out io.Writer = file
	if verbose {
		out = io.MultiWriter(file, os.Stderr)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.DebugLevel)

	logger := &Logger{Logger: l, file: file}
	logger.WithField("component", component).Info("STARTUP: log file opened")
	return logger, nil
}

// Println writes an info-level line, matching the historical Sia/rivine
// Logger API the rest of the codebase was written against.
func (l *Logger) Println(v ...interface{}) {
	l.Logger.Infoln(v...)
}

// Critical logs a critical-level line and returns the formatted message, so
// callers can fold it into build.Critical's return value.
func (l *Logger) Critical(v ...interface{}) string {
	entry := l.Logger.WithField("level", "critical")
	entry.Error(v...)
	return fmt.Sprint(v...)
}

// Close flushes the SHUTDOWN marker and closes the underlying file.
func (l *Logger) Close() error {
	l.Logger.Info("SHUTDOWN: log file closed")
	return l.file.Close()
}
