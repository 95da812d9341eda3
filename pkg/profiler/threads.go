package profiler

import "sync"

// threadSet maps thread keys to hook state. A Thread whose stack has fully
// unwound is released to a pool, so keys that are never reused (goroutine
// ids) do not accumulate and a reused key starts at depth 0.
type threadSet struct {
	p    *Profiler
	m    sync.Map // uint64 -> *Thread
	pool sync.Pool
}

func (s *threadSet) acquire(key uint64) *Thread {
	if v, ok := s.m.Load(key); ok {
		return v.(*Thread)
	}
	th, _ := s.pool.Get().(*Thread)
	if th == nil {
		th = s.p.NewThread()
	}
	// each key is written only by its own thread
	s.m.Store(key, th)
	return th
}

func (s *threadSet) lookup(key uint64) (*Thread, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Thread), true
}

func (s *threadSet) releaseIdle(key uint64, th *Thread) {
	if !th.idle() {
		return
	}
	s.m.Delete(key)
	s.pool.Put(th)
}

func (s *threadSet) forget(key uint64) {
	if v, loaded := s.m.LoadAndDelete(key); loaded {
		th := v.(*Thread)
		th.reset()
		s.pool.Put(th)
	}
}

func (s *threadSet) live() int {
	n := 0
	s.m.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
