package core

import (
	"log"
)

// Logger is the leveled logger the engine writes to.  The zero
// configuration routes everything through the standard library log
// package.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TraceEnabled controls whether the default logger emits trace-level
// messages.  Embedded-expression failures and callonce cache hits are
// logged at trace level, which is usually just noise.
var TraceEnabled = false

type stdLogger struct{}

// NewLogger returns the default Logger.
func NewLogger() Logger {
	return stdLogger{}
}

func (stdLogger) Tracef(format string, args ...interface{}) {
	if TraceEnabled {
		log.Printf("TRACE "+format, args...)
	}
}

func (stdLogger) Debugf(format string, args ...interface{}) {
	log.Printf("DEBUG "+format, args...)
}

func (stdLogger) Infof(format string, args ...interface{}) {
	log.Printf("INFO "+format, args...)
}

func (stdLogger) Warnf(format string, args ...interface{}) {
	log.Printf("WARN "+format, args...)
}

func (stdLogger) Errorf(format string, args ...interface{}) {
	log.Printf("ERROR "+format, args...)
}
