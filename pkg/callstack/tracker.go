// Package callstack tracks the active call chain of a single thread.
//
// A Tracker is owned by exactly one thread of execution and is never shared;
// it does no locking.
package callstack

// DefaultMaxDepth is the deepest call chain tracked per thread.
const DefaultMaxDepth = 256

// Frame is one active, unreturned call. ChildNS is the time already spent in
// completed callees.
type Frame struct {
	FuncID  int32
	EnterNS uint64
	ChildNS uint64
}

// SelfNS returns elapsed minus the time charged to callees.
func (f Frame) SelfNS(elapsed uint64) uint64 {
	if f.ChildNS >= elapsed {
		return 0
	}
	return elapsed - f.ChildNS
}

// Tracker is a fixed-capacity stack of active frames plus the matching shape
// vector (the function ids of the frames, outermost first).
type Tracker struct {
	frames []Frame
	shape  []int32
}

// NewTracker allocates a tracker that holds at most maxDepth frames.
func NewTracker(maxDepth int) *Tracker {
	if maxDepth <= 0 || maxDepth > DefaultMaxDepth {
		maxDepth = DefaultMaxDepth
	}
	return &Tracker{
		frames: make([]Frame, 0, maxDepth),
		shape:  make([]int32, 0, maxDepth),
	}
}

// Push records a call to id entered at enterNS. It reports false, leaving the
// tracker untouched, when the tracker is already at capacity.
func (t *Tracker) Push(id int32, enterNS uint64) bool {
	if len(t.frames) == cap(t.frames) {
		return false
	}
	t.frames = append(t.frames, Frame{FuncID: id, EnterNS: enterNS})
	t.shape = append(t.shape, id)
	return true
}

// Top returns the innermost active frame.
func (t *Tracker) Top() (Frame, bool) {
	if len(t.frames) == 0 {
		return Frame{}, false
	}
	return t.frames[len(t.frames)-1], true
}

// Pop removes the innermost frame regardless of its id.
func (t *Tracker) Pop() bool {
	n := len(t.frames)
	if n == 0 {
		return false
	}
	t.frames = t.frames[:n-1]
	t.shape = t.shape[:n-1]
	return true
}

// ChargeTop adds a completed callee's time to the innermost frame.
func (t *Tracker) ChargeTop(ns uint64) {
	if n := len(t.frames); n > 0 {
		t.frames[n-1].ChildNS += ns
	}
}

// Shape returns the current call-stack shape. The slice aliases tracker
// storage and is only valid until the next Push or Pop.
func (t *Tracker) Shape() []int32 {
	return t.shape
}

// Depth returns the number of active frames.
func (t *Tracker) Depth() int {
	return len(t.frames)
}

// MaxDepth returns the tracker capacity.
func (t *Tracker) MaxDepth() int {
	return cap(t.frames)
}

// Reset abandons every active frame.
func (t *Tracker) Reset() {
	t.frames = t.frames[:0]
	t.shape = t.shape[:0]
}
