package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseLogLevel accepts logrus level names as well as the WARNING and CRITICAL spellings.
func ParseLogLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "WARNING":
		return logrus.WarnLevel, nil
	case "CRITICAL":
		return logrus.FatalLevel, nil
	case "":
		return logrus.InfoLevel, nil
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// NewLogger configures a logger printing "LEVEL: [file:line] message" lines.
func NewLogger(level string) (*logrus.Logger, error) {
	parsed, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parsed)
	logger.SetReportCaller(true)
	logger.SetFormatter(&callerFormatter{})

	return logger, nil
}

type callerFormatter struct{}

func (f *callerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteString(": ")

	if entry.HasCaller() {
		fmt.Fprintf(&b, "[%s] ", caller(entry.Caller))
	}

	b.WriteString(entry.Message)

	for key, value := range entry.Data {
		fmt.Fprintf(&b, " %s=%v", key, value)
	}

	b.WriteByte('\n')

	return []byte(b.String()), nil
}

func caller(frame *runtime.Frame) string {
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
