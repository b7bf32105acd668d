package system

import (
	"fmt"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// Kinds bundles the shipping component stores shared by the systems here.
type Kinds struct {
	Positions *ecs.Store[spatial.Vec2]
	Velocity  *ecs.Store[component.Velocity]
	Vessel    *ecs.Store[component.Vessel]
	Cargo     *ecs.Store[component.Cargo]
	Port      *ecs.Store[component.Port]
	Route     *ecs.Store[component.Route]
}

// RegisterKinds registers the shipping components on w.
func RegisterKinds(w *world.World) (*Kinds, error) {
	k := &Kinds{Positions: w.Positions()}
	var err error
	if k.Velocity, err = world.Register[component.Velocity](w, "velocity"); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	if k.Vessel, err = world.Register[component.Vessel](w, "vessel"); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	if k.Cargo, err = world.Register[component.Cargo](w, "cargo"); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	if k.Port, err = world.Register[component.Port](w, "port"); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	if k.Route, err = world.Register[component.Route](w, "route"); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	return k, nil
}
