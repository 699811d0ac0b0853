// Package logging provides config-driven categorized file-based logging for Cerno.
// Logs are written to .cerno/logs/ with separate files per category.
// Logging is controlled by the debugMode argument of Configure - when false, no logs are written.
// The CLI passes its --verbose flag as debugMode; the logging block of
// .cerno/cerno.yaml is not read.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot        Category = "boot"
	CategoryParser      Category = "parser"
	CategoryClassifier  Category = "classifier"
	CategoryEmbedding   Category = "embedding"
	CategoryStore       Category = "store"
	CategoryAccumulator Category = "accumulator"
	CategoryReconciler  Category = "reconciler"
	CategoryClusterer   Category = "clusterer"
	CategoryOrganiser   Category = "organiser"
	CategoryLinker      Category = "linker"
	CategoryLifecycle   Category = "lifecycle"
	CategoryRetriever   Category = "retriever"
	CategoryResolver    Category = "resolver"
	CategoryEvents      Category = "events"
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig.
// Kept independent of the config package to avoid an import cycle.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
	Level      string          `yaml:"level" json:"level"`
	JSONFormat bool            `yaml:"json_format" json:"json_format"`
}

// StructuredLogEntry is the shape of a JSON log line when JSONFormat is set.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
// A Logger whose logger field is nil is a no-op (category disabled).
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Configure wires the logging package to a workspace root and config values.
// Called once by the CLI's PersistentPreRunE with debugMode set from
// --verbose, level "info", plain-text output and every category enabled;
// keeping this as a plain setter (rather than logging reading the YAML
// itself) avoids a logging<->config import cycle.
func Configure(ws string, debugMode bool, level string, jsonFormat bool, categories map[string]bool) error {
	configMu.Lock()
	workspace = ws
	logsDir = filepath.Join(ws, ".cerno", "logs")
	config = loggingConfig{DebugMode: debugMode, Level: level, JSONFormat: jsonFormat, Categories: categories}
	switch level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	configMu.Unlock()

	if !debugMode {
		return nil
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	boot := Get(CategoryBoot)
	boot.Info("=== Cerno logging initialized ===")
	boot.Info("workspace=%s logsDir=%s level=%s", workspace, logsDir, level)
	return nil
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled reports whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or lazily creates) the logger for a category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()
	if dir == "" {
		return &Logger{category: category}
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

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// CloseAll closes every open category log file. Call at process shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures an operation's duration and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation in the given category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the elapsed duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold, debug otherwise.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// --- Convenience functions, one Info/Debug/Warn/Error set per hot category ---

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Parser(format string, args ...interface{})      { Get(CategoryParser).Info(format, args...) }
func ParserDebug(format string, args ...interface{}) { Get(CategoryParser).Debug(format, args...) }
func ParserWarn(format string, args ...interface{})  { Get(CategoryParser).Warn(format, args...) }
func ParserError(format string, args ...interface{}) { Get(CategoryParser).Error(format, args...) }

func Classifier(format string, args ...interface{})      { Get(CategoryClassifier).Info(format, args...) }
func ClassifierDebug(format string, args ...interface{}) { Get(CategoryClassifier).Debug(format, args...) }

func Embedding(format string, args ...interface{})      { Get(CategoryEmbedding).Info(format, args...) }
func EmbeddingDebug(format string, args ...interface{}) { Get(CategoryEmbedding).Debug(format, args...) }
func EmbeddingWarn(format string, args ...interface{})  { Get(CategoryEmbedding).Warn(format, args...) }
func EmbeddingError(format string, args ...interface{}) { Get(CategoryEmbedding).Error(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Accumulator(format string, args ...interface{})      { Get(CategoryAccumulator).Info(format, args...) }
func AccumulatorDebug(format string, args ...interface{}) { Get(CategoryAccumulator).Debug(format, args...) }
func AccumulatorWarn(format string, args ...interface{})  { Get(CategoryAccumulator).Warn(format, args...) }
func AccumulatorError(format string, args ...interface{}) {
	Get(CategoryAccumulator).Error(format, args...)
}

func Reconciler(format string, args ...interface{})      { Get(CategoryReconciler).Info(format, args...) }
func ReconcilerDebug(format string, args ...interface{}) { Get(CategoryReconciler).Debug(format, args...) }
func ReconcilerWarn(format string, args ...interface{})  { Get(CategoryReconciler).Warn(format, args...) }

func Clusterer(format string, args ...interface{})      { Get(CategoryClusterer).Info(format, args...) }
func ClustererDebug(format string, args ...interface{}) { Get(CategoryClusterer).Debug(format, args...) }
func ClustererWarn(format string, args ...interface{})  { Get(CategoryClusterer).Warn(format, args...) }

func Organiser(format string, args ...interface{})      { Get(CategoryOrganiser).Info(format, args...) }
func OrganiserDebug(format string, args ...interface{}) { Get(CategoryOrganiser).Debug(format, args...) }
func OrganiserWarn(format string, args ...interface{})  { Get(CategoryOrganiser).Warn(format, args...) }

func Linker(format string, args ...interface{})      { Get(CategoryLinker).Info(format, args...) }
func LinkerDebug(format string, args ...interface{}) { Get(CategoryLinker).Debug(format, args...) }

func Lifecycle(format string, args ...interface{})      { Get(CategoryLifecycle).Info(format, args...) }
func LifecycleDebug(format string, args ...interface{}) { Get(CategoryLifecycle).Debug(format, args...) }
func LifecycleWarn(format string, args ...interface{})  { Get(CategoryLifecycle).Warn(format, args...) }

func Retriever(format string, args ...interface{})      { Get(CategoryRetriever).Info(format, args...) }
func RetrieverDebug(format string, args ...interface{}) { Get(CategoryRetriever).Debug(format, args...) }

func Resolver(format string, args ...interface{})      { Get(CategoryResolver).Info(format, args...) }
func ResolverDebug(format string, args ...interface{}) { Get(CategoryResolver).Debug(format, args...) }
func ResolverWarn(format string, args ...interface{})  { Get(CategoryResolver).Warn(format, args...) }
func ResolverError(format string, args ...interface{}) { Get(CategoryResolver).Error(format, args...) }

func Events(format string, args ...interface{})      { Get(CategoryEvents).Info(format, args...) }
func EventsDebug(format string, args ...interface{}) { Get(CategoryEvents).Debug(format, args...) }
func EventsWarn(format string, args ...interface{})  { Get(CategoryEvents).Warn(format, args...) }
func EventsError(format string, args ...interface{}) { Get(CategoryEvents).Error(format, args...) }
