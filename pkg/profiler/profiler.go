// Package profiler is the instrumentation runtime: generated code calls Enter
// at every function start and Exit on every return path, and the profiler
// accumulates per-function call counts and wall time plus per-stack-shape time
// for flame graphs. Finalize writes the reports once at shutdown.
//
// Hooks never fail. Out-of-range ids, calls past the depth limit, unmatched
// exits and calls before Initialize or after Finalize are ignored.
package profiler

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/fnprof/pkg/clock"
	"github.com/danpilch/fnprof/pkg/debug"
	"github.com/danpilch/fnprof/pkg/report"
	"github.com/danpilch/fnprof/pkg/samples"
)

const (
	stateActive int32 = iota + 1
	stateFinalized
)

// Tracer receives hook events. Implementations must be safe for concurrent use.
type Tracer interface {
	Enter(depth, funcID int, name string)
	Exit(depth, funcID int, elapsedNS uint64)
	Mismatch(depth, topID, exitID int)
}

// Profiler holds the process-wide tables and the report configuration.
type Profiler struct {
	cfg       Config
	clock     clock.Clock
	logger    *logrus.Logger
	tracer    Tracer
	summaryTo io.Writer

	functions *FunctionTable
	samples   *samples.Table
	// goroutines holds the stacks of the handle-free Enter/Exit hooks,
	// external those of EnterOn/ExitOn
	goroutines threadSet
	external   threadSet

	state           atomic.Int32
	droppedEnters   atomic.Uint64
	mismatchedExits atomic.Uint64

	stopExitHook func()
	timings      []debug.PhaseTiming
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithClock replaces the platform monotonic clock.
func WithClock(c clock.Clock) Option {
	return func(p *Profiler) {
		p.clock = c
	}
}

// WithLogger sets the logger used for finalize diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Profiler) {
		p.logger = l
	}
}

// WithTracer attaches a hook event tracer.
func WithTracer(t Tracer) Option {
	return func(p *Profiler) {
		p.tracer = t
	}
}

// WithSummaryWriter redirects the console summary (stderr by default).
func WithSummaryWriter(w io.Writer) Option {
	return func(p *Profiler) {
		p.summaryTo = w
	}
}

// New creates an active profiler. Capacities in cfg are clamped to their limits.
func New(cfg Config, opts ...Option) *Profiler {
	cfg = cfg.normalize()
	p := &Profiler{
		cfg:       cfg,
		functions: NewFunctionTable(cfg.MaxFunctions),
		samples:   samples.NewTable(cfg.MaxStackSamples),
		summaryTo: os.Stderr,
	}
	p.goroutines.p = p
	p.external.p = p
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = clock.Monotonic()
	}
	if p.logger == nil {
		p.logger = logrus.New()
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			p.logger.SetLevel(lvl)
		} else {
			p.logger.SetLevel(logrus.WarnLevel)
		}
	}
	p.state.Store(stateActive)
	return p
}

// Config returns the normalized configuration.
func (p *Profiler) Config() Config {
	return p.cfg
}

// Active reports whether hooks are being recorded.
func (p *Profiler) Active() bool {
	return p.state.Load() == stateActive
}

// Functions exposes the function table.
func (p *Profiler) Functions() *FunctionTable {
	return p.functions
}

// Samples exposes the stack sample table.
func (p *Profiler) Samples() *samples.Table {
	return p.samples
}

// Stats are the drop counters kept by the hooks.
type Stats struct {
	DroppedEnters   uint64
	MismatchedExits uint64
	DroppedSamples  uint64
}

// Stats returns the current drop counters.
func (p *Profiler) Stats() Stats {
	return Stats{
		DroppedEnters:   p.droppedEnters.Load(),
		MismatchedExits: p.mismatchedExits.Load(),
		DroppedSamples:  p.samples.Dropped(),
	}
}

// Snapshot copies both tables.
func (p *Profiler) Snapshot() *report.Snapshot {
	stacks := p.samples.Snapshot()
	snap := &report.Snapshot{
		Functions: p.functions.Snapshot(),
		Stacks:    make([]report.Stack, len(stacks)),
	}
	for i, s := range stacks {
		snap.Stacks[i] = report.Stack{FuncIDs: s.FuncIDs, TimeNS: s.TimeNS}
	}
	return snap
}

// Enter records a function entry on the calling goroutine's call stack.
// Goroutines that make many calls should hold a Thread from NewThread instead,
// which skips the per-call goroutine lookup.
func (p *Profiler) Enter(funcID int, name string) {
	if !p.Active() {
		return
	}
	p.goroutines.acquire(uint64(goid.Get())).Enter(funcID, name)
}

// Exit records a function return on the calling goroutine's call stack.
func (p *Profiler) Exit(funcID int) {
	if !p.Active() {
		return
	}
	key := uint64(goid.Get())
	if th, ok := p.goroutines.lookup(key); ok {
		th.Exit(funcID)
		p.goroutines.releaseIdle(key, th)
	}
}

// EnterOn records a function entry on the thread identified by key. Keys are
// chosen by the caller, typically a native thread id; a key must not be used
// by two threads at once.
func (p *Profiler) EnterOn(key uint64, funcID int, name string) {
	if !p.Active() {
		return
	}
	p.external.acquire(key).Enter(funcID, name)
}

// ExitOn records a function return on the thread identified by key.
func (p *Profiler) ExitOn(key uint64, funcID int) {
	if !p.Active() {
		return
	}
	if th, ok := p.external.lookup(key); ok {
		th.Exit(funcID)
		p.external.releaseIdle(key, th)
	}
}

// ForgetThread drops the state of a thread that has exited. Unreturned calls
// on it are abandoned without producing timing data, and a later thread given
// the same key starts with an empty stack.
func (p *Profiler) ForgetThread(key uint64) {
	p.external.forget(key)
}
