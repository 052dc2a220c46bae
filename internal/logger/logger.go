package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	logger  = newDefault()
	logFile *os.File
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR (any case) to a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	lvl, ok := ParseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.SetLevel(lvl.logrus())
}

// Configure applies the logging section of the configuration.
//
// format is "text" or "json"; output is "stdout", "stderr" or a file path
// opened in append mode.
func Configure(level, format, output string) error {
	var w io.Writer
	var file *os.File
	switch output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log output %q: %w", output, err)
		}
		w = f
		file = f
	}

	var formatter logrus.Formatter
	switch format {
	case "", "text":
		formatter = textFormatter()
	case "json":
		formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		if file != nil {
			_ = file.Close()
		}
		return fmt.Errorf("unknown log format %q", format)
	}

	mu.Lock()
	defer mu.Unlock()

	logger.SetOutput(w)
	logger.SetFormatter(formatter)
	if lvl, ok := ParseLevel(level); ok {
		logger.SetLevel(lvl.logrus())
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	return nil
}

// SetOutput redirects log output. Used by tests to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// IsEnabled reports whether messages at level would be emitted.
func IsEnabled(level Level) bool {
	return logger.IsLevelEnabled(level.logrus())
}

func log(level Level, format string, v ...any) {
	if !logger.IsLevelEnabled(level.logrus()) {
		return
	}
	logger.Log(level.logrus(), fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
