package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{} // default level
	isInitialized   bool
	mutex           sync.RWMutex
	logBuffer       *RingBuffer
	logCallback     LogCallback
)

// Config represents logging configuration. Modules maps a module name to a
// level that overrides Level for that module only.
type Config struct {
	Level   string
	Format  string
	Modules map[string]string
}

// levelFor resolves the effective level of module. Unknown level strings
// fall back to the global level, and an unknown global level to info.
func (c Config) levelFor(module string) slog.Level {
	level := slog.LevelInfo
	if parsed := parseLevel(c.Level); parsed != nil {
		level = *parsed
	}
	if parsed := parseLevel(c.Modules[module]); parsed != nil {
		level = *parsed
	}
	return level
}

// Initialize sets up the logging system.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	// Create ring buffer for log history
	logBuffer = NewRingBuffer(defaultBufferSize)

	globalLevelVar.Set(config.levelFor(""))

	// Loggers handed out before Initialize were built without the buffer
	// handler and with the text format, so rebuild them.
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(config.levelFor(module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	// Create base handler for default logger
	handler := createHandler(config.Format, globalLevelVar)

	// Set default logger
	slog.SetDefault(slog.New(handler))
}

// ApplyLevels updates the level of every existing module logger from config
// without rebuilding handlers. Used for hot reload; the output format only
// changes on restart.
func ApplyLevels(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig.Level = config.Level
	globalConfig.Modules = config.Modules

	globalLevelVar.Set(config.levelFor(""))
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(globalConfig.levelFor(module))
	}
}

// Levels returns the effective level of every module logger.
func Levels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()

	levels := make(map[string]string, len(moduleLevelVars))
	for module, levelVar := range moduleLevelVars {
		levels[module] = levelToString(levelVar.Level())
	}
	return levels
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// Used for publishing log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	// Create logger if it doesn't exist
	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	// Before Initialize every module starts at info with text output
	cfg := Config{Format: "text"}
	if isInitialized {
		cfg = globalConfig
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(cfg.levelFor(module))
	handler := createHandler(cfg.Format, levelVar)

	logger := slog.New(handler).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// createHandler creates a slog handler with the specified format and level.
// Logs to stdout, journal (when available), and ring buffer for SSE streaming.
// Level can be slog.Level or *slog.LevelVar for dynamic level changes.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	journalAvailable := IsJournalAvailable()
	stdoutAvailable := isStdoutAvailable()

	// Build handler chain
	var handlers []slog.Handler

	if stdoutAvailable {
		handlers = append(handlers, stdoutHandler)
	}

	if journalAvailable {
		handlers = append(handlers, NewJournalHandler(level))
	}

	// Always add buffer handler - it dynamically checks if buffer is available
	handlers = append(handlers, NewBufferHandler(level))

	// Return appropriate handler based on available outputs
	switch len(handlers) {
	case 0:
		return stdoutHandler // Fallback
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Available if terminal, pipe, socket, or regular file (not /dev/null which is ModeDevice)
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		l := slog.LevelDebug
		return &l
	case "info":
		l := slog.LevelInfo
		return &l
	case "warn", "warning":
		l := slog.LevelWarn
		return &l
	case "error":
		l := slog.LevelError
		return &l
	default:
		return nil
	}
}
