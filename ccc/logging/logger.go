package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// slogLevel maps a configured level onto slog, defaulting to info.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// dailyRotatingWriter opens a new <name>-<date>.log file whenever the local date changes
type dailyRotatingWriter struct {
	logDir      string
	filename    string
	now         func() time.Time
	currentFile *os.File
	currentDate string
	mu          sync.Mutex
}

func newDailyRotatingWriter(logDir, filename string) *dailyRotatingWriter {
	return &dailyRotatingWriter{
		logDir:   logDir,
		filename: filename,
		now:      time.Now,
	}
}

// Write implements io.Writer
func (w *dailyRotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().Format("2006-01-02")
	if w.currentFile == nil || w.currentDate != date {
		if err := w.rotate(date); err != nil {
			return 0, err
		}
	}

	return w.currentFile.Write(p)
}

func (w *dailyRotatingWriter) rotate(date string) error {
	if w.currentFile != nil {
		w.currentFile.Close()
	}

	path := filepath.Join(w.logDir, fmt.Sprintf("%s-%s.log", w.filename, date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.currentFile = file
	w.currentDate = date
	return nil
}

// Close closes the file currently written to
func (w *dailyRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		return err
	}
	return nil
}

// CreateLogger creates a JSON logger that writes to daily rotating files in logDir.
// If logDir cannot be created the logger falls back to stdout.
func CreateLogger(logLevel LogLevel, logDir string, fileName string) Logger {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return CreateWriterLogger(logLevel, os.Stdout)
	}

	return CreateWriterLogger(logLevel, newDailyRotatingWriter(logDir, fileName))
}

// CreateWriterLogger creates a JSON logger writing to w
func CreateWriterLogger(logLevel LogLevel, w io.Writer) Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel.slogLevel(),
	}))
}

type nopLogger struct{}

// NopLogger discards everything. Constructors fall back to it when given a nil logger.
var NopLogger Logger = &nopLogger{}

func (l *nopLogger) Info(msg string, args ...any)  {}
func (l *nopLogger) Warn(msg string, args ...any)  {}
func (l *nopLogger) Error(msg string, args ...any) {}
func (l *nopLogger) Debug(msg string, args ...any) {}
