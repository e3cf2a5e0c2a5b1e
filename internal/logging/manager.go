package logging

import (
	"sync"

	"partshub-catalog/internal/logging/adapters"
)

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Initialize sets up the global logger from the configured level and format.
// Called once at process start; callers elsewhere use GetGlobalLogger.
func Initialize(level, format string) Logger {
	logger := NewMultiLogger()
	logger.SetLevel(ParseLogLevel(level))
	_ = logger.AddAdapter(adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{Format: format}))

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	return logger
}

// GetGlobalLogger returns the process-wide logger, initializing a default
// JSON stdout logger if Initialize has not run yet (tests rely on this).
func GetGlobalLogger() Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()

	if logger != nil {
		return logger
	}

	return Initialize("info", "json")
}
