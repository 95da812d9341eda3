package profiler

import (
	"sync/atomic"

	"github.com/danpilch/fnprof/pkg/report"
)

// FunctionProfile accumulates calls and time for one function id. The name is
// set by the first registration and never changes afterwards.
type FunctionProfile struct {
	name   atomic.Pointer[string]
	calls  atomic.Uint64
	timeNS atomic.Uint64
}

// Name returns the registered name.
func (f *FunctionProfile) Name() (string, bool) {
	p := f.name.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Calls returns the number of recorded entries.
func (f *FunctionProfile) Calls() uint64 {
	return f.calls.Load()
}

// TimeNS returns the cumulative time of completed calls.
func (f *FunctionProfile) TimeNS() uint64 {
	return f.timeNS.Load()
}

func (f *FunctionProfile) register(name string) {
	if f.name.Load() != nil {
		return
	}
	f.name.CompareAndSwap(nil, &name)
}

// FunctionTable is the fixed-size table of profiles indexed by function id.
type FunctionTable struct {
	profiles []FunctionProfile
}

// NewFunctionTable allocates n zeroed profiles.
func NewFunctionTable(n int) *FunctionTable {
	return &FunctionTable{profiles: make([]FunctionProfile, n)}
}

// Len returns the table size; valid ids are [0, Len).
func (t *FunctionTable) Len() int {
	return len(t.profiles)
}

// Get returns the profile for id, or nil when id is out of range.
func (t *FunctionTable) Get(id int) *FunctionProfile {
	if id < 0 || id >= len(t.profiles) {
		return nil
	}
	return &t.profiles[id]
}

// Snapshot copies every registered function in ascending id order.
func (t *FunctionTable) Snapshot() []report.Function {
	var out []report.Function
	for i := range t.profiles {
		f := &t.profiles[i]
		name, ok := f.Name()
		if !ok {
			continue
		}
		out = append(out, report.Function{
			ID:     i,
			Name:   name,
			Calls:  f.Calls(),
			TimeNS: f.TimeNS(),
		})
	}
	return out
}
