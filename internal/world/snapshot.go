package world

import (
	"cmp"
	"slices"
	"time"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
)

// EntityRecord is one live entity in a Snapshot.
type EntityRecord struct {
	ID   ecs.EntityID
	Mask bitset.Mask
}

// ComponentRecord is one component value in a Snapshot.
type ComponentRecord struct {
	Entity ecs.EntityID
	Value  any
}

// Snapshot is a point-in-time copy of every live entity and component, for
// persistence collaborators. Values are shallow copies: slices inside a
// component are shared with the live store.
type Snapshot struct {
	Step       uint64
	Taken      time.Time
	Kinds      []ecs.KindInfo
	Entities   []EntityRecord
	Components map[string][]ComponentRecord
}

// Snapshot must run while no system is writing, i.e. between steps or from a
// sequential system.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{
		Step:       w.step,
		Taken:      time.Now(),
		Kinds:      w.reg.Kinds(),
		Components: make(map[string][]ComponentRecord),
	}

	ids := w.reg.Query(bitset.Mask{})
	slices.Sort(ids)
	snap.Entities = make([]EntityRecord, 0, len(ids))
	for _, id := range ids {
		m, ok := w.reg.Mask(id)
		if !ok {
			continue
		}
		snap.Entities = append(snap.Entities, EntityRecord{ID: id, Mask: m})
	}

	for _, k := range snap.Kinds {
		s := w.reg.Storage(k.Kind)
		if s == nil || s.Len() == 0 {
			continue
		}
		recs := make([]ComponentRecord, 0, s.Len())
		s.Each(func(id ecs.EntityID, v any) {
			recs = append(recs, ComponentRecord{Entity: id, Value: v})
		})
		slices.SortFunc(recs, func(a, b ComponentRecord) int {
			return cmp.Compare(a.Entity, b.Entity)
		})
		snap.Components[k.Name] = recs
	}
	return snap
}

// Len returns the number of component values in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, recs := range s.Components {
		n += len(recs)
	}
	return n
}
