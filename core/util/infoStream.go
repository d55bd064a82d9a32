package util

import (
	"io"

	"github.com/op/go-logging"
)

// util/InfoStream.java

/*
Debugging API for classes such as IndexFileDeleter.

NOTE: Enabling infostreams may cause performance degradation in some
components.
*/
type InfoStream interface {
	io.Closer
	Clone() InfoStream
	Message(component, message string, args ...interface{})
	IsEnabled(component string) bool
}

// Instance of InfoStream that does no logging at all.
var NO_OUTPUT = NoOutput(true)

type NoOutput bool

func (is NoOutput) Message(component, message string, args ...interface{}) {
	panic("message() should not be called when isEnabled returns false")
}

func (is NoOutput) IsEnabled(component string) bool { return false }
func (is NoOutput) Close() error                    { return nil }
func (is NoOutput) Clone() InfoStream               { return is }

/*
InfoStream implementation that forwards messages to a go-logging
logger at DEBUG level. A component is enabled whenever the logger
would emit DEBUG records.
*/
type LoggingInfoStream struct {
	log *logging.Logger
}

func NewLoggingInfoStream(module string) *LoggingInfoStream {
	return &LoggingInfoStream{logging.MustGetLogger(module)}
}

func (is *LoggingInfoStream) Message(component, message string, args ...interface{}) {
	is.log.Debugf(component+" "+message, args...)
}

func (is *LoggingInfoStream) IsEnabled(component string) bool {
	return is.log.IsEnabledFor(logging.DEBUG)
}

func (is *LoggingInfoStream) Close() error      { return nil }
func (is *LoggingInfoStream) Clone() InfoStream { return is }
