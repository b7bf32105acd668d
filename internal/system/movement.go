package system

import (
	"time"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	coresys "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// MovementSystem integrates position from velocity. Positions go through the
// store's Add so the spatial grid follows.
type MovementSystem struct {
	kinds *Kinds
}

func NewMovementSystem(k *Kinds) *MovementSystem {
	return &MovementSystem{kinds: k}
}

func (s *MovementSystem) Name() string   { return "movement" }
func (s *MovementSystem) Priority() int  { return coresys.PhasePostUpdate }
func (s *MovementSystem) Parallel() bool { return true }

func (s *MovementSystem) Requires() bitset.Mask {
	return ecs.MaskOf(s.kinds.Positions.Kind(), s.kinds.Velocity.Kind())
}

func (s *MovementSystem) Update(dt time.Duration, w *world.World) {
	sec := dt.Seconds()
	if sec <= 0 {
		return
	}
	k := s.kinds
	for _, id := range w.Query(k.Positions.Kind(), k.Velocity.Kind()) {
		v, _ := k.Velocity.Get(id)
		if v.X == 0 && v.Y == 0 {
			continue
		}
		p, _ := k.Positions.Get(id)
		k.Positions.Add(id, p.Add(spatial.Vec2{X: v.X, Y: v.Y}.Scale(sec)))
	}
}
