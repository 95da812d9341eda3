// Package samples aggregates elapsed time per distinct call-stack shape.
//
// Each shape (ordered function ids, outermost first) owns one time bucket, so
// the same function reached through different callers accumulates separately.
// This is the data a flame graph is drawn from.
//
// The table is shared by every thread. Slots are reserved with an atomic
// counter so insertion order is preserved, and lookups go through a sharded
// index keyed by an xxh3 hash of the shape with elementwise comparison on
// collision. Once the table is full, new shapes are dropped and counted;
// existing samples keep accumulating.
package samples

import (
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// DefaultCapacity is the maximum number of distinct shapes retained.
const DefaultCapacity = 65536

const numShards = 64

// Sample is a point-in-time copy of one table entry.
type Sample struct {
	FuncIDs []int32
	TimeNS  uint64
}

type entry struct {
	ids    []int32
	timeNS atomic.Uint64
}

type shard struct {
	mu    sync.Mutex
	index map[uint64][]*entry
}

// Table is a capacity-bounded, deduplicated set of stack samples.
type Table struct {
	slots   []atomic.Pointer[entry]
	next    atomic.Int64
	dropped atomic.Uint64
	shards  [numShards]shard
}

// NewTable creates a table that retains at most capacity shapes.
func NewTable(capacity int) *Table {
	if capacity <= 0 || capacity > DefaultCapacity {
		capacity = DefaultCapacity
	}
	t := &Table{
		slots: make([]atomic.Pointer[entry], capacity),
	}
	for i := range t.shards {
		t.shards[i].index = make(map[uint64][]*entry)
	}
	return t
}

// Add attributes elapsed nanoseconds to shape, creating the sample the first
// time the shape is seen. It reports false when the shape is new and the table
// is full; the update is dropped. Empty shapes are ignored.
func (t *Table) Add(shape []int32, elapsed uint64) bool {
	if len(shape) == 0 {
		return false
	}
	h := hashShape(shape)
	s := &t.shards[h%numShards]

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.index[h] {
		if slices.Equal(e.ids, shape) {
			e.timeNS.Add(elapsed)
			return true
		}
	}

	idx := t.next.Add(1) - 1
	if idx >= int64(len(t.slots)) {
		t.next.Add(-1)
		t.dropped.Add(1)
		return false
	}

	e := &entry{ids: slices.Clone(shape)}
	e.timeNS.Store(elapsed)
	s.index[h] = append(s.index[h], e)
	t.slots[idx].Store(e)
	return true
}

// Len returns the number of retained shapes.
func (t *Table) Len() int {
	return min(int(t.next.Load()), len(t.slots))
}

// Cap returns the table capacity.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Dropped returns how many updates were lost because the table was full.
func (t *Table) Dropped() uint64 {
	return t.dropped.Load()
}

// Snapshot copies every retained sample in insertion order.
func (t *Table) Snapshot() []Sample {
	n := t.Len()
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		e := t.slots[i].Load()
		if e == nil {
			// slot reserved by a concurrent Add that has not published yet
			continue
		}
		out = append(out, Sample{
			FuncIDs: slices.Clone(e.ids),
			TimeNS:  e.timeNS.Load(),
		})
	}
	return out
}

// hashShape hashes the raw bytes of the id sequence without copying.
func hashShape(shape []int32) uint64 {
	//nolint:gosec // G103: read-only byte view of the int32 slice for hashing
	b := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(shape))), len(shape)*4)
	return xxh3.Hash(b)
}
