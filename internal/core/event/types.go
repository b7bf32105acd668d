package event

import "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"

// EntityDestroyed is emitted by the World for every entity it destroys.
type EntityDestroyed struct {
	Entity ecs.EntityID
}

// Docked fires when a vessel first comes within a port's radius.
type Docked struct {
	Vessel ecs.EntityID
	Port   ecs.EntityID
}
