package profiler

import "github.com/danpilch/fnprof/pkg/callstack"

// Thread is the per-thread hook state: the active call stack and the ids of
// calls entered past the depth limit. A Thread must only be used by the
// goroutine (or locked OS thread) that owns it.
type Thread struct {
	p     *Profiler
	stack *callstack.Tracker
	// overflow holds the ids of untracked calls, innermost last
	overflow []int32
}

// NewThread creates call stack state for one thread of execution.
func (p *Profiler) NewThread() *Thread {
	return &Thread{
		p:     p,
		stack: callstack.NewTracker(p.cfg.MaxCallDepth),
	}
}

// Depth returns the number of tracked active calls.
func (th *Thread) Depth() int {
	return th.stack.Depth()
}

func (th *Thread) idle() bool {
	return th.stack.Depth() == 0 && len(th.overflow) == 0
}

func (th *Thread) reset() {
	th.stack.Reset()
	th.overflow = th.overflow[:0]
}

// Enter registers name for funcID on first sight, counts the call and pushes
// a timestamped frame. Past the depth limit the call is neither counted nor
// timed; only its id is remembered so its exit can be paired.
func (th *Thread) Enter(funcID int, name string) {
	p := th.p
	if !p.Active() {
		return
	}
	fn := p.functions.Get(funcID)
	if fn == nil {
		return
	}
	if th.stack.Depth() >= th.stack.MaxDepth() {
		th.overflow = append(th.overflow, int32(funcID))
		p.droppedEnters.Add(1)
		return
	}

	fn.register(name)
	fn.calls.Add(1)
	th.stack.Push(int32(funcID), p.clock.Now())

	if p.tracer != nil {
		p.tracer.Enter(th.stack.Depth(), funcID, name)
	}
}

// Exit pops the innermost frame. When it belongs to funcID the elapsed time is
// added to the function total, the self time (elapsed minus completed callees)
// goes to the sample for the current shape, and the caller frame is charged the
// elapsed time. A frame for a different id is discarded without timing.
//
// Untracked calls are unwound the same way. An exit that matches the innermost
// tracked frame instead discards every untracked call above it, since those
// returned without an exit.
func (th *Thread) Exit(funcID int) {
	p := th.p
	if !p.Active() {
		return
	}
	fn := p.functions.Get(funcID)
	if fn == nil {
		return
	}
	if !th.exitOverflow(int32(funcID)) {
		return
	}

	top, ok := th.stack.Top()
	if !ok {
		return
	}

	now := p.clock.Now()
	depth := th.stack.Depth()
	if top.FuncID == int32(funcID) {
		var elapsed uint64
		if now > top.EnterNS {
			elapsed = now - top.EnterNS
		}
		fn.timeNS.Add(elapsed)
		p.samples.Add(th.stack.Shape(), top.SelfNS(elapsed))
		th.stack.Pop()
		th.stack.ChargeTop(elapsed)
		if p.tracer != nil {
			p.tracer.Exit(depth, funcID, elapsed)
		}
		return
	}

	p.mismatchedExits.Add(1)
	if p.tracer != nil {
		p.tracer.Mismatch(depth, int(top.FuncID), funcID)
	}
	th.stack.Pop()
}

// exitOverflow resolves an exit against the untracked calls. It reports
// whether the exit still has to be applied to the tracked stack.
func (th *Thread) exitOverflow(funcID int32) bool {
	n := len(th.overflow)
	if n == 0 {
		return true
	}
	if th.overflow[n-1] == funcID {
		th.overflow = th.overflow[:n-1]
		return false
	}

	p := th.p
	if top, ok := th.stack.Top(); ok && top.FuncID == funcID {
		p.mismatchedExits.Add(uint64(n))
		th.overflow = th.overflow[:0]
		return true
	}

	p.mismatchedExits.Add(1)
	if p.tracer != nil {
		p.tracer.Mismatch(th.stack.Depth()+n, int(th.overflow[n-1]), int(funcID))
	}
	th.overflow = th.overflow[:n-1]
	return false
}
