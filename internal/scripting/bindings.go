package scripting

import (
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/system"
)

// Fields is the numeric view of a component exposed to Lua.
type Fields map[string]float64

// Binding converts one component kind to and from Fields.
type Binding struct {
	Kind ecs.ComponentKind
	get  func(id ecs.EntityID) (Fields, bool)
	set  func(id ecs.EntityID, f Fields) bool
}

// Bindings maps component kind names to their Lua binding.
type Bindings map[string]Binding

// Bind exposes store s to scripts. encode builds the Lua view of a value;
// decode applies a Lua table onto a copy of the current value (zero if
// absent). Writes go through Store.Add so observers fire.
func Bind[T any](s *ecs.Store[T], encode func(T) Fields, decode func(*T, Fields)) Binding {
	return Binding{
		Kind: s.Kind(),
		get: func(id ecs.EntityID) (Fields, bool) {
			v, ok := s.Get(id)
			if !ok {
				return nil, false
			}
			return encode(v), true
		},
		set: func(id ecs.EntityID, f Fields) bool {
			v, _ := s.Get(id)
			decode(&v, f)
			return s.Add(id, v)
		},
	}
}

func setIf(dst *float64, f Fields, key string) {
	if v, ok := f[key]; ok {
		*dst = v
	}
}

// ShippingBindings binds position, velocity and cargo.
func ShippingBindings(k *system.Kinds) Bindings {
	return Bindings{
		"position": Bind(k.Positions,
			func(p spatial.Vec2) Fields { return Fields{"x": p.X, "y": p.Y} },
			func(p *spatial.Vec2, f Fields) {
				setIf(&p.X, f, "x")
				setIf(&p.Y, f, "y")
			}),
		"velocity": Bind(k.Velocity,
			func(v component.Velocity) Fields { return Fields{"x": v.X, "y": v.Y} },
			func(v *component.Velocity, f Fields) {
				setIf(&v.X, f, "x")
				setIf(&v.Y, f, "y")
			}),
		"cargo": Bind(k.Cargo,
			func(c component.Cargo) Fields { return Fields{"units": float64(c.Units)} },
			func(c *component.Cargo, f Fields) {
				if u, ok := f["units"]; ok {
					c.Units = int(u)
				}
			}),
	}
}
