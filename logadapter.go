package pool

import (
	"github.com/prataprc/chunkpool/api"
	"github.com/prataprc/chunkpool/log"
)

// packageLogger adapts the process-wide log package to api.Logger, so a
// Pool can be told WithLogger(DefaultLogger()) to fold its growth and
// release events into whatever the rest of the process is already
// logging through, instead of wiring a bespoke logger per pool.
type packageLogger struct{}

// DefaultLogger returns an api.Logger backed by the log package's
// process-wide logger, as installed by log.SetLogger.
func DefaultLogger() api.Logger {
	return packageLogger{}
}

func (packageLogger) Infof(format string, v ...interface{})  { log.Infof(format, v...) }
func (packageLogger) Debugf(format string, v ...interface{}) { log.Debugf(format, v...) }
func (packageLogger) Warnf(format string, v ...interface{})  { log.Warnf(format, v...) }
