package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter pairs the application logger with the optional categorized
// event logs, so callers never need to check which is configured
type LoggerAdapter struct {
	multiLogger *MultiLogger
	appLogger   *zap.Logger
}

// NewLoggerAdapter creates an adapter. multiLogger may be nil, in which case
// events and errors go to the application logger only.
func NewLoggerAdapter(appLogger *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	if appLogger == nil {
		appLogger = zap.NewNop()
	}
	return &LoggerAdapter{
		multiLogger: multiLogger,
		appLogger:   appLogger,
	}
}

// NewNopAdapter creates an adapter that discards everything
func NewNopAdapter() *LoggerAdapter {
	return NewLoggerAdapter(zap.NewNop(), nil)
}

// App returns the application logger
func (la *LoggerAdapter) App() *zap.Logger {
	return la.appLogger
}

// LogDownloadEvent records a download lifecycle event
func (la *LoggerAdapter) LogDownloadEvent(event string, fields ...zap.Field) {
	if la.multiLogger != nil {
		la.multiLogger.LogDownloadEvent(event, fields...)
		return
	}
	la.appLogger.Debug(event, fields...)
}

// LogAppError logs an error to the application log and, when configured,
// to the error category file
func (la *LoggerAdapter) LogAppError(msg string, fields ...zap.Field) {
	la.appLogger.Error(msg, fields...)
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// LogsDir returns the categorized logs directory, or "" if none
func (la *LoggerAdapter) LogsDir() string {
	if la.multiLogger == nil {
		return ""
	}
	return la.multiLogger.GetLogsDir()
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	err := la.appLogger.Sync()
	if la.multiLogger != nil {
		if merr := la.multiLogger.Sync(); merr != nil {
			err = merr
		}
	}
	return err
}

// GetMultiLogger returns the underlying multi-logger (if available)
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
