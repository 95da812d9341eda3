// Package report renders profiler data: the folded-stack file for flame graph
// tools, the per-function JSON document, the console summary and a pprof export.
package report

// Function is the accumulated profile of one registered function.
type Function struct {
	ID     int
	Name   string
	Calls  uint64
	TimeNS uint64
}

// Stack is one call-stack shape and the time spent with exactly that shape on top.
type Stack struct {
	FuncIDs []int32
	TimeNS  uint64
}

// NamedStack is a Stack with its ids resolved to names, outermost first.
type NamedStack struct {
	Frames []string
	TimeNS uint64
}

// Snapshot is a consistent copy of the profiler tables taken at finalize.
// Functions holds only registered functions, in ascending id order.
// Stacks is in first-seen order.
type Snapshot struct {
	Functions []Function
	Stacks    []Stack
}

// TotalTimeNS sums cumulative time across registered functions.
func (s *Snapshot) TotalTimeNS() uint64 {
	var total uint64
	for _, f := range s.Functions {
		total += f.TimeNS
	}
	return total
}

// NamedStacks resolves stack ids to names. Ids without a registered name are
// left out of the frame list; a stack with no named frames is skipped.
func (s *Snapshot) NamedStacks() []NamedStack {
	names := make(map[int32]string, len(s.Functions))
	for _, f := range s.Functions {
		names[int32(f.ID)] = f.Name
	}

	out := make([]NamedStack, 0, len(s.Stacks))
	for _, st := range s.Stacks {
		frames := make([]string, 0, len(st.FuncIDs))
		for _, id := range st.FuncIDs {
			if name, ok := names[id]; ok {
				frames = append(frames, name)
			}
		}
		if len(frames) == 0 {
			continue
		}
		out = append(out, NamedStack{Frames: frames, TimeNS: st.TimeNS})
	}
	return out
}
