// Package logging provides config-driven categorized file-based logging for AI Studio.
// Logs are written to the configured directory with one file per category per day.
// Logging is controlled by logging.debug_mode - when false, every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aistudio/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, restore
	CategorySession Category = "session" // Session manager, login/logout
	CategoryRouter  Category = "router"  // View transitions
	CategoryTools   Category = "tools"   // Tool dispatcher and panels
	CategoryAPI     Category = "api"     // Backend HTTP calls
	CategoryStore   Category = "store"   // Credential store
	CategoryUI      Category = "ui"      // Terminal UI events
)

// Logger wraps a zap sugared logger bound to a category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	nop       = zap.NewNop().Sugar()
)

// Initialize sets up the logging directory and applies config.
// Should be called once at startup; calling it again closes existing loggers.
func Initialize(lc config.LoggingConfig) error {
	CloseAll()

	cfgMu.Lock()
	cfg = lc
	cfgMu.Unlock()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(lc.Level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)

	if !lc.DebugMode {
		return nil
	}
	if lc.Dir == "" {
		return fmt.Errorf("logging dir required when debug_mode is on")
	}
	if err := os.MkdirAll(lc.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== AI Studio logging initialized ===")
	boot.Info("Logs directory: %s", lc.Dir)
	boot.Info("Log level: %s", lvl)
	return nil
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: nop}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	cfgMu.RLock()
	dir := cfg.Dir
	jsonFormat := cfg.JSONFormat()
	cfgMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category, sugar: nop}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(file), level)
	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
		file:     file,
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger that attaches key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all category log files.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for cat, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			_ = l.file.Close()
		}
		delete(loggers, cat)
	}
}

// =============================================================================
// CATEGORY SHORTHANDS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Session(format string, args ...interface{})      { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }
func SessionWarn(format string, args ...interface{})  { Get(CategorySession).Warn(format, args...) }
func SessionError(format string, args ...interface{}) { Get(CategorySession).Error(format, args...) }

func Router(format string, args ...interface{})      { Get(CategoryRouter).Info(format, args...) }
func RouterDebug(format string, args ...interface{}) { Get(CategoryRouter).Debug(format, args...) }
func RouterWarn(format string, args ...interface{})  { Get(CategoryRouter).Warn(format, args...) }
func RouterError(format string, args ...interface{}) { Get(CategoryRouter).Error(format, args...) }

func Tools(format string, args ...interface{})      { Get(CategoryTools).Info(format, args...) }
func ToolsDebug(format string, args ...interface{}) { Get(CategoryTools).Debug(format, args...) }
func ToolsWarn(format string, args ...interface{})  { Get(CategoryTools).Warn(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIWarn(format string, args ...interface{})  { Get(CategoryAPI).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func UI(format string, args ...interface{})      { Get(CategoryUI).Info(format, args...) }
func UIDebug(format string, args ...interface{}) { Get(CategoryUI).Debug(format, args...) }

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning when the operation exceeded threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
