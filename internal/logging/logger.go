// Package logging provides config-driven categorized logging for autocraft.
// Every subsystem logs through a category so noisy areas (the bridge, the
// supervisor's per-step chatter) can be switched off independently.
// Output is produced by a shared zap core; until Initialize or SetLogger is
// called every logger is a no-op, which keeps packages quiet under test.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, shutdown
	CategoryAgent      Category = "agent"      // Event loop, reflexes, idle trigger
	CategoryDecision   Category = "decision"   // Decision engine and gate
	CategorySupervisor Category = "supervisor" // Persistent task lifecycle
	CategoryDispatch   Category = "dispatch"   // Action dispatching
	CategoryWorld      Category = "world"      // Gateway implementations
	CategoryBridge     Category = "bridge"     // Websocket bridge traffic
	CategoryConfig     Category = "config"     // Config loading and reload
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional output path in addition to stderr
	Categories map[string]bool // per-category toggles, missing = enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the shared zap logger from options.
func Initialize(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)

	var cfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	install(logger, opts.Categories)
	return nil
}

// SetLogger installs an externally built zap logger (the CLI builds one in
// its pre-run hook). Passing nil restores the no-op logger.
func SetLogger(logger *zap.Logger, cats map[string]bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	install(logger, cats)
}

func install(logger *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = cats
	loggers = make(map[Category]*Logger)
}

// ParseLevel maps a config level string onto a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel changes the level of every logger at runtime.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Level returns the current level name.
func Level() string {
	return level.Level().String()
}

// AtomicLevel exposes the shared level so an externally built logger can
// follow runtime level changes.
func AtomicLevel() zap.AtomicLevel {
	return level
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered output.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
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

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %v", t.op, elapsed)
	return elapsed
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func Agent(format string, args ...interface{}) {
	Get(CategoryAgent).Info(format, args...)
}

func AgentDebug(format string, args ...interface{}) {
	Get(CategoryAgent).Debug(format, args...)
}

func Decision(format string, args ...interface{}) {
	Get(CategoryDecision).Info(format, args...)
}

func DecisionDebug(format string, args ...interface{}) {
	Get(CategoryDecision).Debug(format, args...)
}

func Supervisor(format string, args ...interface{}) {
	Get(CategorySupervisor).Info(format, args...)
}

func SupervisorDebug(format string, args ...interface{}) {
	Get(CategorySupervisor).Debug(format, args...)
}

func Dispatch(format string, args ...interface{}) {
	Get(CategoryDispatch).Info(format, args...)
}

func DispatchDebug(format string, args ...interface{}) {
	Get(CategoryDispatch).Debug(format, args...)
}

func World(format string, args ...interface{}) {
	Get(CategoryWorld).Info(format, args...)
}

func WorldDebug(format string, args ...interface{}) {
	Get(CategoryWorld).Debug(format, args...)
}

func Bridge(format string, args ...interface{}) {
	Get(CategoryBridge).Info(format, args...)
}

func BridgeDebug(format string, args ...interface{}) {
	Get(CategoryBridge).Debug(format, args...)
}

func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}
