// Package system schedules systems into ordered execution groups. Members of
// a group share no component kinds and may run on the worker pool at the same
// time; groups are separated by a barrier.
package system

import (
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/statsd"
)

var ErrDuplicateSystem = errors.New("system already registered")

type entry[C any] struct {
	sys  System[C]
	seq  int
	deps []string

	// effective dependencies after resolution and cycle breaking
	after []*entry[C]

	mu          sync.Mutex
	window      *ring
	invocations uint64
	faults      uint64
}

// Options configures a Scheduler.
type Options struct {
	Workers int // worker goroutines; <1 means 1
	Window  int // samples kept per system for Avg/Max; <1 means 1
}

// Scheduler owns the registered systems, derives the run order and execution
// groups from priorities, explicit dependencies and component masks, and runs
// them once per Run call.
//
// Register and Unregister may be called between runs; the plan is rebuilt
// lazily on the next Run, Order or Groups.
type Scheduler[C any] struct {
	mu      sync.Mutex
	log     *zap.Logger
	entries map[string]*entry[C]
	seq     int
	dirty   bool
	order   []*entry[C]
	groups  [][]*entry[C]
	window  int

	pool   *pool
	closed bool
	frame  uint64
	last   FrameReport
}

func NewScheduler[C any](opts Options, log *zap.Logger) *Scheduler[C] {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Window < 1 {
		opts.Window = 1
	}
	return &Scheduler[C]{
		log:     log,
		entries: make(map[string]*entry[C]),
		window:  opts.Window,
		pool:    newPool(opts.Workers),
	}
}

// Register adds sys. after names systems that must complete before sys runs;
// names not registered when the plan is built are logged and ignored.
func (s *Scheduler[C]) Register(sys System[C], after ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := sys.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateSystem)
	}
	s.seq++
	s.entries[name] = &entry[C]{
		sys:    sys,
		seq:    s.seq,
		deps:   slices.Clone(after),
		window: newRing(s.window),
	}
	s.dirty = true
	return nil
}

// Unregister removes the named system. Dependencies on it from other systems
// are dropped at the next rebuild.
func (s *Scheduler[C]) Unregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return false
	}
	delete(s.entries, name)
	s.dirty = true
	return true
}

// Len reports the number of registered systems.
func (s *Scheduler[C]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Order returns system names in topological run order.
func (s *Scheduler[C]) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	out := make([]string, len(s.order))
	for i, e := range s.order {
		out[i] = e.sys.Name()
	}
	return out
}

// Groups returns the execution groups as system names.
func (s *Scheduler[C]) Groups() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	out := make([][]string, len(s.groups))
	for i, g := range s.groups {
		out[i] = make([]string, len(g))
		for j, e := range g {
			out[i][j] = e.sys.Name()
		}
	}
	return out
}

func (s *Scheduler[C]) rebuildLocked() {
	if !s.dirty {
		return
	}
	s.dirty = false

	sorted := make([]*entry[C], 0, len(s.entries))
	for _, e := range s.entries {
		e.after = e.after[:0]
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := sorted[i].sys.Priority(), sorted[j].sys.Priority()
		if pi != pj {
			return pi < pj
		}
		return sorted[i].seq < sorted[j].seq
	})

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*entry[C]]int, len(sorted))
	order := make([]*entry[C], 0, len(sorted))

	var visit func(e *entry[C])
	visit = func(e *entry[C]) {
		state[e] = visiting
		for _, name := range e.deps {
			d, ok := s.entries[name]
			if !ok {
				s.log.Warn("unknown system dependency ignored",
					zap.String("system", e.sys.Name()),
					zap.String("dependency", name))
				continue
			}
			switch state[d] {
			case visiting:
				s.log.Error("system dependency cycle, edge dropped",
					zap.String("system", e.sys.Name()),
					zap.String("dependency", name))
				continue
			case unvisited:
				visit(d)
			}
			e.after = append(e.after, d)
		}
		state[e] = done
		order = append(order, e)
	}
	for _, e := range sorted {
		if state[e] == unvisited {
			visit(e)
		}
	}

	s.order = order
	s.groups = group(order)
	s.log.Debug("system plan rebuilt",
		zap.Int("systems", len(order)),
		zap.Int("groups", len(s.groups)))
}

// group walks order and appends each system to the open group when it is
// parallel, every member is parallel and shares its priority, its mask is
// disjoint from all members and all of its dependencies sit in already
// closed groups. Otherwise the open group closes and a new one starts.
//
// Requiring equal priority makes every lower priority an implicit
// predecessor: a later band never starts before an earlier one finishes.
func group[C any](order []*entry[C]) [][]*entry[C] {
	var (
		groups [][]*entry[C]
		cur    []*entry[C]
		closed = make(map[*entry[C]]bool, len(order))
	)
	fits := func(e *entry[C]) bool {
		if len(cur) == 0 || !e.sys.Parallel() {
			return false
		}
		req, prio := e.sys.Requires(), e.sys.Priority()
		for _, m := range cur {
			if !m.sys.Parallel() || m.sys.Priority() != prio || m.sys.Requires().Intersects(req) {
				return false
			}
		}
		for _, d := range e.after {
			if !closed[d] {
				return false
			}
		}
		return true
	}
	for _, e := range order {
		if fits(e) {
			cur = append(cur, e)
			continue
		}
		if len(cur) > 0 {
			for _, m := range cur {
				closed[m] = true
			}
			groups = append(groups, cur)
		}
		cur = []*entry[C]{e}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// Run executes every group in order. Members of a multi-system group run
// concurrently; the caller waits for the whole group before starting the
// next. A panicking system is recovered, logged and reported; the rest of
// the frame still runs.
func (s *Scheduler[C]) Run(dt time.Duration, ctx C) FrameReport {
	s.mu.Lock()
	s.rebuildLocked()
	groups := s.groups
	total := len(s.order)
	parallel := 0
	for _, e := range s.order {
		if e.sys.Parallel() {
			parallel++
		}
	}
	s.frame++
	frame := s.frame
	closed := s.closed
	s.mu.Unlock()

	start := time.Now()
	var st frameState
	for _, g := range groups {
		if len(g) == 1 || closed {
			for _, e := range g {
				s.invoke(e, frame, dt, ctx, &st)
			}
			continue
		}
		var wg sync.WaitGroup
		wg.Add(len(g) - 1)
		for _, e := range g[1:] {
			task := func() {
				defer wg.Done()
				s.invoke(e, frame, dt, ctx, &st)
			}
			if !s.pool.submit(task) {
				task() // closed mid-frame
			}
		}
		s.invoke(g[0], frame, dt, ctx, &st)
		wg.Wait()
	}

	rep := FrameReport{
		Frame:       frame,
		Duration:    time.Since(start),
		Groups:      len(groups),
		Systems:     total,
		Slowest:     st.slowest,
		SlowestTime: st.slowT,
		Faults:      st.faults,
	}
	if total > 0 {
		rep.ParallelCapable = float64(parallel) / float64(total)
	}
	statsd.EmitFrameTime(rep.Duration, rep.Groups)

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	return rep
}

func (s *Scheduler[C]) invoke(e *entry[C], frame uint64, dt time.Duration, ctx C, st *frameState) {
	name := e.sys.Name()
	start := time.Now()
	defer func() {
		d := time.Since(start)
		r := recover()

		e.mu.Lock()
		e.window.add(d)
		e.invocations++
		if r != nil {
			e.faults++
		}
		e.mu.Unlock()

		st.observe(name, d)
		statsd.EmitSystemTime(name, d)

		if r != nil {
			f := Fault{
				System: name,
				Frame:  frame,
				Time:   time.Now(),
				Panic:  fmt.Sprint(r),
				Stack:  string(debug.Stack()),
			}
			s.log.Error("system panicked",
				zap.String("system", name),
				zap.Uint64("frame", frame),
				zap.Time("time", f.Time),
				zap.Any("panic", r),
				zap.String("stack", f.Stack))
			statsd.EmitFault(name)
			st.fault(f)
		}
	}()
	e.sys.Update(dt, ctx)
}

// Stats returns per-system statistics in run order.
func (s *Scheduler[C]) Stats() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	out := make([]Stats, 0, len(s.order))
	for _, e := range s.order {
		e.mu.Lock()
		out = append(out, Stats{
			Name:        e.sys.Name(),
			Priority:    e.sys.Priority(),
			Parallel:    e.sys.Parallel(),
			Invocations: e.invocations,
			Faults:      e.faults,
			Avg:         e.window.avg(),
			Max:         e.window.max(),
			Last:        e.window.last(),
		})
		e.mu.Unlock()
	}
	return out
}

// Report returns the last frame together with per-system statistics.
func (s *Scheduler[C]) Report() Report {
	stats := s.Stats()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Report{Last: s.last, Systems: stats}
}

// Close stops the worker pool. Later runs execute every group inline; a Run
// already in flight finishes its remaining members on the calling goroutine.
func (s *Scheduler[C]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pool.close()
}
