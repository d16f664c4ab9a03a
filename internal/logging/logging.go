// Package logging configures the server's single structured logger: a
// zap.Logger writing timestamped, serialized lines to a size- and
// count-rotated file, matching the reference RotatingFileHandler
// (10 MiB per file, 10 backups, old log files wiped at startup).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "webserver.log"
	maxSizeMB   = 10
	maxBackups  = 10
)

// Logger wraps a zap.Logger with one mutex, so every event — regardless of
// which goroutine calls in — is serialized through a single point, the
// external guarantee spec.md describes as "Logger: serializes all writes
// through one mutex". zap's own core is already safe for concurrent use;
// the mutex exists to preserve that guarantee as an explicit property of
// this type rather than an implementation detail callers must trust.
type Logger struct {
	mu sync.Mutex
	zl *zap.Logger
}

// New builds the process logger, writing to <dir>/webserver.log and its
// lumberjack-rotated backups. Any pre-existing webserver.log* files under
// dir are removed first, mirroring the reference implementation's
// startup cleanup; since the result store has no durability guarantee
// across restarts either, a fresh log file each run is consistent with
// the rest of the process's non-goals.
func New(dir string) (*Logger, error) {
	if err := wipeOldLogs(dir); err != nil {
		return nil, fmt.Errorf("logging: wipe old logs: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   false,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.LevelKey = ""
	encoderCfg.ConsoleSeparator = " "
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		zapcore.ISO8601TimeEncoder(t.UTC(), enc)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(writer),
		zapcore.InfoLevel,
	)

	return &Logger{zl: zap.New(core)}, nil
}

// Event logs one informational line. It is the single serialization point
// every caller in the process funnels through.
func (l *Logger) Event(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Info(msg, fields...)
}

// Error logs one error line through the same serialization point as
// Event.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Error(msg, fields...)
}

// Sync flushes any buffered log entries. Callers should invoke it once
// during shutdown.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl.Sync()
}

func wipeOldLogs(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, logFileName+"*"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
