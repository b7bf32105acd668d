package system

import (
	"time"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/event"
	coresys "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// CargoSystem unloads docked vessels into the port's stockpile, creating the
// stockpile on first delivery. It consumes the previous step's Docked events.
type CargoSystem struct {
	kinds     *Kinds
	delivered int64
}

func NewCargoSystem(k *Kinds) *CargoSystem {
	return &CargoSystem{kinds: k}
}

func (s *CargoSystem) Name() string          { return "cargo" }
func (s *CargoSystem) Priority() int         { return coresys.PhasePreUpdate }
func (s *CargoSystem) Parallel() bool        { return true }
func (s *CargoSystem) Requires() bitset.Mask { return s.kinds.Cargo.Mask() }

// Delivered is the total number of units unloaded so far. Read between steps.
func (s *CargoSystem) Delivered() int64 { return s.delivered }

func (s *CargoSystem) Update(_ time.Duration, w *world.World) {
	k := s.kinds
	for _, ev := range event.Read[event.Docked](w.Events()) {
		if c, ok := k.Cargo.Get(ev.Vessel); !ok || c.Units == 0 {
			continue
		}
		if !k.Cargo.Has(ev.Port) && !k.Cargo.Add(ev.Port, component.Cargo{}) {
			continue
		}
		// Ref after Add: inserting may move the dense array.
		stock, _ := k.Cargo.Ref(ev.Port)
		load, _ := k.Cargo.Ref(ev.Vessel)
		stock.Units += load.Units
		s.delivered += int64(load.Units)
		load.Units = 0
	}
}
