package system

import (
	"time"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	coresys "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// DefaultSpeed is used for routed entities without a Vessel.
const DefaultSpeed = 10.0

// RouteSystem steers routed entities toward their next waypoint. When the
// waypoint is reachable this step, velocity is set to land exactly on it and
// the route advances.
type RouteSystem struct {
	kinds *Kinds
}

func NewRouteSystem(k *Kinds) *RouteSystem {
	return &RouteSystem{kinds: k}
}

func (s *RouteSystem) Name() string   { return "route" }
func (s *RouteSystem) Priority() int  { return coresys.PhaseUpdate }
func (s *RouteSystem) Parallel() bool { return true }

// Requires covers position and vessel too: both are read.
func (s *RouteSystem) Requires() bitset.Mask {
	k := s.kinds
	return ecs.MaskOf(k.Route.Kind(), k.Velocity.Kind(), k.Positions.Kind(), k.Vessel.Kind())
}

func (s *RouteSystem) Update(dt time.Duration, w *world.World) {
	sec := dt.Seconds()
	if sec <= 0 {
		return
	}
	k := s.kinds
	for _, id := range w.Query(k.Route.Kind(), k.Velocity.Kind(), k.Positions.Kind()) {
		r, _ := k.Route.Ref(id)
		vel, _ := k.Velocity.Ref(id)
		if r.Next >= len(r.Waypoints) {
			if !r.Loop || len(r.Waypoints) == 0 {
				*vel = component.Velocity{}
				continue
			}
			r.Next = 0
		}

		speed := DefaultSpeed
		if v, ok := k.Vessel.Get(id); ok && v.Speed > 0 {
			speed = v.Speed
		}
		pos, _ := k.Positions.Get(id)
		d := r.Waypoints[r.Next].Sub(pos)
		dist := d.Len()
		if dist <= speed*sec {
			d = d.Scale(1 / sec)
			r.Next++
		} else {
			d = d.Scale(speed / dist)
		}
		*vel = component.Velocity{X: d.X, Y: d.Y}
	}
}
