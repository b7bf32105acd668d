package system

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/data"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// SpawnPrefabs creates every prefab in t with one batch per prefab and returns
// the number of entities created. rng jitters positions by the prefab spread.
func SpawnPrefabs(w *world.World, k *Kinds, t *data.PrefabTable, rng *rand.Rand) (int, error) {
	total := 0
	for _, p := range t.All() {
		if p.Count == 0 {
			continue
		}
		ids, err := w.CreateEntities(p.Count, prefabInit(k, p, rng))
		if err != nil {
			return total, fmt.Errorf("spawn prefab %q: %w", p.Name, err)
		}
		total += len(ids)
	}
	return total, nil
}

func prefabInit(k *Kinds, p *data.Prefab, rng *rand.Rand) world.Init {
	return func(_ *world.World, id ecs.EntityID) {
		if p.Position != nil {
			pos := *p.Position
			if p.Spread > 0 {
				pos.X += (rng.Float64()*2 - 1) * p.Spread
				pos.Y += (rng.Float64()*2 - 1) * p.Spread
			}
			k.Positions.Add(id, pos)
		}
		if p.Velocity != nil {
			k.Velocity.Add(id, *p.Velocity)
		}
		if p.Vessel != nil {
			k.Vessel.Add(id, *p.Vessel)
		}
		if p.Cargo != nil {
			k.Cargo.Add(id, *p.Cargo)
		}
		if p.Port != nil {
			k.Port.Add(id, *p.Port)
		}
		if len(p.Route) > 0 {
			k.Route.Add(id, component.Route{Waypoints: slices.Clone(p.Route), Loop: p.Loop})
			if !k.Velocity.Has(id) {
				k.Velocity.Add(id, component.Velocity{})
			}
		}
	}
}
