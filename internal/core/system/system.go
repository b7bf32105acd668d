package system

import (
	"time"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
)

// Phase names coarse priority bands. Lower runs first when no explicit
// dependency says otherwise; any int is a valid priority.
const (
	PhaseInput      = 0   // drain external queues
	PhasePreUpdate  = 100 // react to last step's events
	PhaseUpdate     = 200 // simulation logic
	PhasePostUpdate = 300 // integration, spatial upkeep
	PhaseOutput     = 400 // build outbound views
	PhasePersist    = 500 // snapshots
)

// System is the interface every scheduled unit implements. C is the context
// handed to Update, normally the World.
//
// Requires must be a truthful superset of every component kind the system
// reads or writes. The scheduler only runs two systems concurrently when
// their Requires masks are disjoint; it cannot detect an untruthful mask.
type System[C any] interface {
	Name() string
	Priority() int
	Parallel() bool
	Requires() bitset.Mask
	Update(dt time.Duration, ctx C)
}

// Func adapts a plain function to System.
type Func[C any] struct {
	ID         string
	Order      int
	Concurrent bool
	Components bitset.Mask
	Fn         func(dt time.Duration, ctx C)
}

func (f *Func[C]) Name() string          { return f.ID }
func (f *Func[C]) Priority() int         { return f.Order }
func (f *Func[C]) Parallel() bool        { return f.Concurrent }
func (f *Func[C]) Requires() bitset.Mask { return f.Components }

func (f *Func[C]) Update(dt time.Duration, ctx C) {
	if f.Fn != nil {
		f.Fn(dt, ctx)
	}
}
