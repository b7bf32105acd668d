package component

import (
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
)

// Velocity is world units per second.
type Velocity struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Vessel marks a ship entity.
type Vessel struct {
	Name     string       `yaml:"name" json:"name"`
	Capacity int          `yaml:"capacity" json:"capacity"` // cargo units
	Speed    float64      `yaml:"speed" json:"speed"`       // cruise speed, units/s
	DockedAt ecs.EntityID `yaml:"-" json:"docked_at"`       // port entity while docked, 0 at sea
}

// Route is an ordered list of waypoints. Next indexes the current target;
// Next == len(Waypoints) means the route is finished unless Loop is set.
type Route struct {
	Waypoints []spatial.Vec2 `yaml:"waypoints" json:"waypoints"`
	Next      int            `yaml:"-" json:"next"`
	Loop      bool           `yaml:"loop" json:"loop"`
}
