package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	coresys "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// SnapshotSink accepts snapshots without blocking the step. Enqueue reports
// false when the snapshot was dropped.
type SnapshotSink interface {
	Enqueue(snap world.Snapshot) bool
}

// PersistenceSystem periodically hands a world snapshot to a sink. It runs
// alone in its group so the snapshot sees no concurrent writers. Phase 5
// (Persist).
type PersistenceSystem struct {
	sink      SnapshotSink
	log       *zap.Logger
	tickCount int
	interval  int // snapshot every N steps
	dropped   int
}

func NewPersistenceSystem(sink SnapshotSink, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		sink:     sink,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Name() string          { return "persistence" }
func (s *PersistenceSystem) Priority() int         { return coresys.PhasePersist }
func (s *PersistenceSystem) Parallel() bool        { return false }
func (s *PersistenceSystem) Requires() bitset.Mask { return bitset.Mask{} }

func (s *PersistenceSystem) Update(_ time.Duration, w *world.World) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveNow(w)
}

// SaveNow snapshots immediately. Called for graceful shutdown, between steps.
func (s *PersistenceSystem) SaveNow(w *world.World) bool {
	snap := w.Snapshot()
	if !s.sink.Enqueue(snap) {
		s.dropped++
		s.log.Warn("snapshot dropped, saver busy",
			zap.Uint64("step", snap.Step),
			zap.Int("dropped", s.dropped))
		return false
	}
	s.log.Debug("snapshot queued",
		zap.Uint64("step", snap.Step),
		zap.Int("entities", len(snap.Entities)),
		zap.Int("components", snap.Len()))
	return true
}
