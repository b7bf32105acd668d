package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/event"
	coresys "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// DockingSystem tracks which port each vessel sits at. A vessel entering a
// port's radius emits event.Docked once; leaving clears Vessel.DockedAt.
// When port radii overlap the first port found wins.
type DockingSystem struct {
	kinds   *Kinds
	log     *zap.Logger
	inRange map[ecs.EntityID]ecs.EntityID
}

func NewDockingSystem(k *Kinds, log *zap.Logger) *DockingSystem {
	return &DockingSystem{
		kinds:   k,
		log:     log,
		inRange: make(map[ecs.EntityID]ecs.EntityID),
	}
}

func (s *DockingSystem) Name() string   { return "docking" }
func (s *DockingSystem) Priority() int  { return coresys.PhasePostUpdate }
func (s *DockingSystem) Parallel() bool { return false }

func (s *DockingSystem) Requires() bitset.Mask {
	k := s.kinds
	return ecs.MaskOf(k.Positions.Kind(), k.Port.Kind(), k.Vessel.Kind())
}

func (s *DockingSystem) Update(_ time.Duration, w *world.World) {
	k := s.kinds
	clear(s.inRange)
	for _, port := range w.Query(k.Port.Kind(), k.Positions.Kind()) {
		p, _ := k.Port.Get(port)
		at, _ := k.Positions.Get(port)
		for _, id := range w.SpatialQuery(at, p.Radius) {
			if id == port || !k.Vessel.Has(id) {
				continue
			}
			if _, taken := s.inRange[id]; !taken {
				s.inRange[id] = port
			}
		}
	}

	for _, id := range w.Query(k.Vessel.Kind()) {
		v, _ := k.Vessel.Ref(id)
		port, ok := s.inRange[id]
		switch {
		case ok && v.DockedAt != port:
			v.DockedAt = port
			event.Emit(w.Events(), event.Docked{Vessel: id, Port: port})
			s.log.Debug("vessel docked",
				zap.String("vessel", v.Name),
				zap.Uint64("port", uint64(port)),
				zap.Uint64("step", w.StepCount()))
		case !ok && v.DockedAt != 0:
			v.DockedAt = 0
		}
	}
}
