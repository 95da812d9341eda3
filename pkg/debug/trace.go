// Package debug provides diagnostics for the profiler itself: a hook event
// tracer for chasing enter/exit mismatches, timing of report phases and a
// pprof endpoint for profiling the tooling.
package debug

import (
	"github.com/sirupsen/logrus"
)

// TraceLogger logs every hook event at trace level. It is meant for debugging
// instrumentation and is far too slow to leave attached in production.
type TraceLogger struct {
	logger *logrus.Logger
}

// NewTraceLogger creates a tracer writing through logger. A nil logger gets a
// new one at TraceLevel.
func NewTraceLogger(logger *logrus.Logger) *TraceLogger {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.TraceLevel)
	}
	return &TraceLogger{logger: logger}
}

// Enter records a pushed frame.
func (t *TraceLogger) Enter(depth, funcID int, name string) {
	t.logger.WithFields(logrus.Fields{
		"depth": depth,
		"id":    funcID,
		"name":  name,
	}).Trace("enter")
}

// Exit records a timed return.
func (t *TraceLogger) Exit(depth, funcID int, elapsedNS uint64) {
	t.logger.WithFields(logrus.Fields{
		"depth":      depth,
		"id":         funcID,
		"elapsed_ns": elapsedNS,
	}).Trace("exit")
}

// Mismatch records an exit whose id did not match the innermost frame.
func (t *TraceLogger) Mismatch(depth, topID, exitID int) {
	t.logger.WithFields(logrus.Fields{
		"depth":   depth,
		"top_id":  topID,
		"exit_id": exitID,
	}).Warn("exit does not match innermost frame, dropping its time")
}
