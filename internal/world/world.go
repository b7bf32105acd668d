// Package world is the façade over the ECS core: entity lifecycle, component
// stores, the spatial grid fed by the built-in position kind, typed event
// queues and the system scheduler.
package world

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/config"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/event"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/system"
)

// PositionKind is the name of the built-in position component.
const PositionKind = "position"

// System is a unit of per-step logic run by the World's scheduler.
type System = system.System[*World]

// SystemFunc adapts a function to System.
type SystemFunc = system.Func[*World]

// Init is applied to a freshly created entity.
type Init func(w *World, id ecs.EntityID)

// With sets component v in store s on creation.
func With[T any](s *ecs.Store[T], v T) Init {
	return func(_ *World, id ecs.EntityID) { s.Add(id, v) }
}

// At places the entity on the spatial grid on creation.
func At(p spatial.Vec2) Init {
	return func(w *World, id ecs.EntityID) { w.positions.Add(id, p) }
}

// World owns all simulation state. Step is not reentrant; call it from one
// goroutine.
type World struct {
	log       *zap.Logger
	reg       *ecs.Registry
	grid      *spatial.Grid[ecs.EntityID]
	positions *ecs.Store[spatial.Vec2]
	sched     *system.Scheduler[*World]
	bus       *event.Bus

	budget    time.Duration
	threshold float64

	step        uint64
	lastFrame   time.Duration
	compactions uint64

	destroyMu    sync.Mutex
	destroyQueue []ecs.EntityID
}

func New(cfg *config.Config, log *zap.Logger) (*World, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	grid, err := spatial.NewGrid[ecs.EntityID](cfg.Spatial.CellSize)
	if err != nil {
		return nil, err
	}
	reg := ecs.NewRegistry(cfg.Simulation.MaxEntities, log.Named("ecs"))
	positions, err := ecs.Register[spatial.Vec2](reg, PositionKind)
	if err != nil {
		return nil, err
	}
	positions.Observe(
		func(id ecs.EntityID, p spatial.Vec2) { grid.Update(id, p) },
		func(id ecs.EntityID) { grid.Remove(id) },
	)

	w := &World{
		log:       log,
		reg:       reg,
		grid:      grid,
		positions: positions,
		bus:       event.NewBus(),
		budget:    cfg.Simulation.FrameBudget(),
		threshold: cfg.Simulation.CompactionThreshold,
		sched: system.NewScheduler[*World](system.Options{
			Workers: cfg.Simulation.WorkerCount(),
			Window:  cfg.Metrics.Window,
		}, log.Named("scheduler")),
		destroyQueue: make([]ecs.EntityID, 0, 64),
	}
	return w, nil
}

// Register creates a component store on w.
func Register[T any](w *World, name string) (*ecs.Store[T], error) {
	return ecs.Register[T](w.reg, name)
}

func (w *World) Registry() *ecs.Registry             { return w.reg }
func (w *World) Positions() *ecs.Store[spatial.Vec2] { return w.positions }
func (w *World) Events() *event.Bus                  { return w.bus }
func (w *World) Log() *zap.Logger                    { return w.log }
func (w *World) StepCount() uint64                   { return w.step }

// CreateEntity allocates an entity and applies init in order.
func (w *World) CreateEntity(init ...Init) (ecs.EntityID, error) {
	id, err := w.reg.Create()
	if err != nil {
		return 0, err
	}
	for _, fn := range init {
		fn(w, id)
	}
	return id, nil
}

// CreateEntities allocates n entities with one pool reservation and applies
// init to each. On exhaustion nothing is created.
func (w *World) CreateEntities(n int, init ...Init) ([]ecs.EntityID, error) {
	ids, err := w.reg.CreateBatch(n)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		for _, fn := range init {
			fn(w, id)
		}
	}
	return ids, nil
}

// DestroyEntity destroys e immediately: every component, its archetype entry
// and its grid cell go with it. Systems should use MarkForDestruction instead,
// since another group member may be iterating a store e belongs to.
func (w *World) DestroyEntity(e ecs.EntityID) bool {
	if !w.reg.Destroy(e) {
		return false
	}
	event.Emit(w.bus, event.EntityDestroyed{Entity: e})
	return true
}

// MarkForDestruction queues e for destruction after the current step's last
// group. Safe from parallel systems.
func (w *World) MarkForDestruction(e ecs.EntityID) {
	w.destroyMu.Lock()
	w.destroyQueue = append(w.destroyQueue, e)
	w.destroyMu.Unlock()
}

func (w *World) flushDestroyQueue() int {
	w.destroyMu.Lock()
	queue := w.destroyQueue
	w.destroyQueue = make([]ecs.EntityID, 0, cap(queue))
	w.destroyMu.Unlock()

	n := 0
	for _, id := range queue {
		if w.DestroyEntity(id) {
			n++
		}
	}
	return n
}

func (w *World) Alive(e ecs.EntityID) bool { return w.reg.Alive(e) }

// AddComponent inserts or overwrites e's value in s.
func AddComponent[T any](s *ecs.Store[T], e ecs.EntityID, v T) bool {
	return s.Add(e, v)
}

// RemoveComponent removes and returns e's value in s.
func RemoveComponent[T any](s *ecs.Store[T], e ecs.EntityID) (T, bool) {
	return s.Remove(e)
}

// GetComponent returns e's value in s.
func GetComponent[T any](s *ecs.Store[T], e ecs.EntityID) (T, bool) {
	return s.Get(e)
}

// Query returns the live entities holding every kind given. No kinds matches
// every live entity.
func (w *World) Query(kinds ...ecs.ComponentKind) []ecs.EntityID {
	return w.reg.Query(ecs.MaskOf(kinds...))
}

func (w *World) QueryMask(required bitset.Mask) []ecs.EntityID {
	return w.reg.Query(required)
}

// SetPosition moves e on the grid. Writes through Positions().Ref bypass the
// grid; use this or Positions().Add.
func (w *World) SetPosition(e ecs.EntityID, p spatial.Vec2) bool {
	return w.positions.Add(e, p)
}

func (w *World) Position(e ecs.EntityID) (spatial.Vec2, bool) {
	return w.positions.Get(e)
}

// SpatialQuery returns entities within radius of center.
func (w *World) SpatialQuery(center spatial.Vec2, radius float64) []ecs.EntityID {
	return w.grid.Query(center, radius)
}

// SpatialRect returns entities inside the axis-aligned rectangle [min, max].
func (w *World) SpatialRect(min, max spatial.Vec2) []ecs.EntityID {
	return w.grid.QueryRect(min, max)
}

// RegisterSystem adds sys; after names systems that must run first.
func (w *World) RegisterSystem(sys System, after ...string) error {
	if err := w.sched.Register(sys, after...); err != nil {
		return err
	}
	w.log.Debug("system registered",
		zap.String("system", sys.Name()),
		zap.Int("priority", sys.Priority()),
		zap.Bool("parallel", sys.Parallel()),
		zap.Strings("after", after))
	return nil
}

func (w *World) UnregisterSystem(name string) bool {
	return w.sched.Unregister(name)
}

// Groups exposes the scheduler's execution groups by system name.
func (w *World) Groups() [][]string { return w.sched.Groups() }

// Step advances the simulation by dt: optional compaction, event buffer swap,
// every execution group in order, then the deferred destroy queue.
func (w *World) Step(dt time.Duration) system.FrameReport {
	start := time.Now()
	if w.threshold > 0 && w.lastFrame > time.Duration(float64(w.budget)*w.threshold) {
		w.reg.Compact()
		w.compactions++
		w.log.Debug("stores compacted",
			zap.Uint64("step", w.step),
			zap.Duration("last_frame", w.lastFrame),
			zap.Duration("budget", w.budget))
	}
	w.bus.SwapBuffers()

	rep := w.sched.Run(dt, w)
	if n := w.flushDestroyQueue(); n > 0 {
		w.log.Debug("destroyed queued entities", zap.Int("count", n))
	}

	w.step++
	w.lastFrame = time.Since(start)
	return rep
}

// Report is the read-only performance view of the World.
type Report struct {
	Step        uint64
	Entities    int
	Archetypes  int
	Compactions uint64
	LastFrame   time.Duration
	Budget      time.Duration
	Scheduler   system.Report
}

func (w *World) Report() Report {
	return Report{
		Step:        w.step,
		Entities:    w.reg.Len(),
		Archetypes:  len(w.reg.Archetypes()),
		Compactions: w.compactions,
		LastFrame:   w.lastFrame,
		Budget:      w.budget,
		Scheduler:   w.sched.Report(),
	}
}

// Close stops the scheduler's workers.
func (w *World) Close() {
	w.sched.Close()
}
