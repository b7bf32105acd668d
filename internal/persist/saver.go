package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// Store is where a Saver writes encoded snapshots.
type Store interface {
	Save(ctx context.Context, enc *Encoded) error
}

// Saver encodes and stores snapshots on its own goroutine so the simulation
// step never waits on the database. At most one snapshot waits while another
// is being saved; further ones are refused.
type Saver struct {
	store   Store
	log     *zap.Logger
	timeout time.Duration
	queue   chan world.Snapshot
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	saved  int
	failed int
}

func NewSaver(store Store, log *zap.Logger, timeout time.Duration) *Saver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Saver{
		store:   store,
		log:     log,
		timeout: timeout,
		queue:   make(chan world.Snapshot, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue hands snap to the saver without blocking. It reports false if the
// saver is busy or closed.
func (s *Saver) Enqueue(snap world.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- snap:
		return true
	default:
		return false
	}
}

func (s *Saver) run() {
	defer close(s.done)
	for snap := range s.queue {
		s.save(snap)
	}
}

func (s *Saver) save(snap world.Snapshot) {
	start := time.Now()
	enc, err := Encode(snap)
	if err != nil {
		s.record(false)
		s.log.Error("snapshot encode failed", zap.Uint64("step", snap.Step), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, enc); err != nil {
		s.record(false)
		s.log.Error("snapshot save failed",
			zap.Stringer("id", enc.ID),
			zap.Uint64("step", enc.Step),
			zap.Error(err))
		return
	}
	s.record(true)
	s.log.Info("snapshot saved",
		zap.Stringer("id", enc.ID),
		zap.Uint64("step", enc.Step),
		zap.Int("entities", enc.EntityCount),
		zap.Int("kinds", len(enc.Kinds)),
		zap.Duration("took", time.Since(start)))
}

func (s *Saver) record(ok bool) {
	s.mu.Lock()
	if ok {
		s.saved++
	} else {
		s.failed++
	}
	s.mu.Unlock()
}

// Counts returns how many snapshots were saved and how many failed.
func (s *Saver) Counts() (saved, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, s.failed
}

// Close refuses new snapshots and waits for queued ones to finish.
func (s *Saver) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}
