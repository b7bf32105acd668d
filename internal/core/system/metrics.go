package system

import (
	"sync"
	"time"
)

// ring keeps the most recent invocation durations of one system.
type ring struct {
	samples []time.Duration
	next    int
	n       int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{samples: make([]time.Duration, size)}
}

func (r *ring) add(d time.Duration) {
	r.samples[r.next] = d
	r.next = (r.next + 1) % len(r.samples)
	if r.n < len(r.samples) {
		r.n++
	}
}

func (r *ring) avg() time.Duration {
	if r.n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < r.n; i++ {
		sum += r.samples[i]
	}
	return sum / time.Duration(r.n)
}

func (r *ring) max() time.Duration {
	var m time.Duration
	for i := 0; i < r.n; i++ {
		if r.samples[i] > m {
			m = r.samples[i]
		}
	}
	return m
}

func (r *ring) last() time.Duration {
	if r.n == 0 {
		return 0
	}
	return r.samples[(r.next-1+len(r.samples))%len(r.samples)]
}

// Stats summarizes one system over the metrics window.
type Stats struct {
	Name        string
	Priority    int
	Parallel    bool
	Invocations uint64
	Faults      uint64
	Avg         time.Duration
	Max         time.Duration
	Last        time.Duration
}

// Fault describes a panic recovered from a system's Update.
type Fault struct {
	System string
	Frame  uint64
	Time   time.Time
	Panic  string
	Stack  string
}

// FrameReport describes one Run.
type FrameReport struct {
	Frame    uint64
	Duration time.Duration
	Groups   int
	Systems  int
	// ParallelCapable is the fraction of registered systems marked parallel.
	ParallelCapable float64
	Slowest         string
	SlowestTime     time.Duration
	Faults          []Fault
}

// Report is the read-only performance view: the last frame plus per-system stats.
type Report struct {
	Last    FrameReport
	Systems []Stats
}

// frameState collects per-invocation results from concurrent members.
type frameState struct {
	mu      sync.Mutex
	slowest string
	slowT   time.Duration
	faults  []Fault
}

func (f *frameState) observe(name string, d time.Duration) {
	f.mu.Lock()
	if d > f.slowT || f.slowest == "" {
		f.slowest, f.slowT = name, d
	}
	f.mu.Unlock()
}

func (f *frameState) fault(ft Fault) {
	f.mu.Lock()
	f.faults = append(f.faults, ft)
	f.mu.Unlock()
}
