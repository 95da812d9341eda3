// Package clock provides the monotonic nanosecond time source used by the profiler hooks.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns a monotonic timestamp in nanoseconds. Only differences between
// two readings of the same Clock are meaningful.
type Clock interface {
	Now() uint64
}

// Func adapts a plain function to the Clock interface.
type Func func() uint64

// Now calls f.
func (f Func) Now() uint64 {
	return f()
}

// Monotonic returns the platform clock.
// Platform-specific implementation in clock_linux.go, clock_darwin.go,
// clock_windows.go and clock_other.go.
func Monotonic() Clock {
	return platformClock()
}

// epoch anchors the runtime fallback clock. time.Since uses the monotonic reading.
var epoch = time.Now()

func runtimeNow() uint64 {
	return uint64(time.Since(epoch))
}

// Scaled converts a raw tick counter to nanoseconds with a numer/denom factor
// fixed at construction.
type Scaled struct {
	ticks Func
	numer uint64
	denom uint64
}

// NewScaled calibrates a tick source. A zero denom is treated as 1.
func NewScaled(ticks Func, numer, denom uint64) *Scaled {
	if denom == 0 {
		denom = 1
	}
	if numer == 0 {
		numer = 1
	}
	return &Scaled{ticks: ticks, numer: numer, denom: denom}
}

// Now returns ticks * numer / denom.
func (s *Scaled) Now() uint64 {
	t := s.ticks()
	if s.numer == s.denom {
		return t
	}
	// split to keep t*numer from overflowing for large tick values
	q, r := t/s.denom, t%s.denom
	return q*s.numer + r*s.numer/s.denom
}

// Manual is a settable clock for tests.
type Manual struct {
	now atomic.Uint64
}

// NewManual creates a manual clock starting at start nanoseconds.
func NewManual(start uint64) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

// Now returns the current manual reading.
func (m *Manual) Now() uint64 {
	return m.now.Load()
}

// Set moves the clock to ns.
func (m *Manual) Set(ns uint64) {
	m.now.Store(ns)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.now.Add(uint64(d))
}
