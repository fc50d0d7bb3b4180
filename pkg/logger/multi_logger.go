package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryQueue LogCategory = "queue" // download lifecycle events
	CategoryError LogCategory = "error" // application errors
)

// MultiLogger writes categorized JSON event logs to dated files
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
	logsDir string
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // minimum level for the queue category
	LogsDir string
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		logsDir: config.LogsDir,
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryQueue: level,
		CategoryError: zapcore.ErrorLevel,
	}
	day := time.Now().Format("20060102")
	for category, lvl := range levels {
		path := filepath.Join(config.LogsDir, fmt.Sprintf("%s-%s.log", category, day))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to open %s log: %w", category, err)
		}
		ml.files = append(ml.files, file)
		ml.loggers[category] = zap.New(zapcore.NewCore(eventEncoder(), zapcore.AddSync(file), lvl))
	}

	return ml, nil
}

// NewNopMultiLogger returns a MultiLogger that discards everything
func NewNopMultiLogger() *MultiLogger {
	return &MultiLogger{
		loggers: map[LogCategory]*zap.Logger{
			CategoryQueue: zap.NewNop(),
			CategoryError: zap.NewNop(),
		},
	}
}

func eventEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.CallerKey = ""
	return zapcore.NewJSONEncoder(cfg)
}

// LogsDir returns the logs directory path
func (ml *MultiLogger) LogsDir() string {
	return ml.logsDir
}

// GetLogger returns the logger for a category, falling back to the error logger
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if l, ok := ml.loggers[category]; ok {
		return l
	}
	return ml.loggers[CategoryError]
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// LogQueueEvent logs a queue lifecycle event
func (ml *MultiLogger) LogQueueEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryQueue).Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, l := range ml.loggers {
		if err := l.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	lastErr := ml.Sync()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}
