package wrapper

import (
	"github.com/dmdcache/dmdcache/internal/common"
)

var logWrapper *common.LoggerWrapper

// MakeLoggerWrapper initializes the package logger.
// Must be called once at startup before any dispatch.
// Errors are duplicated to stderr: a broken cache should be visible in build
// output even when file logging is off.
func MakeLoggerWrapper(logFile string, verbosity int64) error {
	logger, err := common.MakeLogger(logFile, verbosity, true, true)
	if err != nil {
		return err
	}
	logWrapper = logger
	return nil
}
