package logger

import corelogger "github.com/driveinsight/fleet/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format follows
// APP_ENV and the level follows SetLevel.
func New(component string) Logger {
	return NewZerologLogger(component)
}
