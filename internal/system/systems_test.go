package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/config"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/event"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

type recordingSink struct {
	accept bool
	snaps  []world.Snapshot
}

func (r *recordingSink) Enqueue(s world.Snapshot) bool {
	if !r.accept {
		return false
	}
	r.snaps = append(r.snaps, s)
	return true
}

type harness struct {
	w      *world.World
	k      *Kinds
	cargo  *CargoSystem
	docked []event.Docked
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Workers = 3
	cfg.Spatial.CellSize = 10
	log := zaptest.NewLogger(t)
	w, err := world.New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	k, err := RegisterKinds(w)
	require.NoError(t, err)
	h := &harness{w: w, k: k, cargo: NewCargoSystem(k)}

	require.NoError(t, w.RegisterSystem(h.cargo))
	require.NoError(t, w.RegisterSystem(NewRouteSystem(k)))
	require.NoError(t, w.RegisterSystem(NewMovementSystem(k), "route"))
	require.NoError(t, w.RegisterSystem(NewDockingSystem(k, log), "movement"))
	require.NoError(t, w.RegisterSystem(&world.SystemFunc{
		ID:    "docked-spy",
		Order: 450,
		Fn: func(_ time.Duration, w *world.World) {
			h.docked = append(h.docked, event.Read[event.Docked](w.Events())...)
		},
	}))
	return h
}

func (h *harness) run(steps int, dt time.Duration) {
	for i := 0; i < steps; i++ {
		h.w.Step(dt)
	}
}

func TestSampleSystemGroups(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, [][]string{
		{"cargo"},
		{"route"},
		{"movement"},
		{"docking"},
		{"docked-spy"},
	}, h.w.Groups())
}

// go test -run ^TestVoyageDeliversCargo$ ./internal/system -count 1
func TestVoyageDeliversCargo(t *testing.T) {
	h := newHarness(t)
	k := h.k

	port, err := h.w.CreateEntity(
		world.At(spatial.Vec2{X: 100}),
		world.With(k.Port, component.Port{Name: "Oakland", Radius: 5}),
	)
	require.NoError(t, err)
	ship, err := h.w.CreateEntity(
		world.At(spatial.Vec2{}),
		world.With(k.Velocity, component.Velocity{}),
		world.With(k.Vessel, component.Vessel{Name: "Ever Given", Capacity: 50, Speed: 50}),
		world.With(k.Cargo, component.Cargo{Units: 30}),
		world.With(k.Route, component.Route{Waypoints: []spatial.Vec2{{X: 100}}}),
	)
	require.NoError(t, err)

	// 5 units per step, 20 steps to arrive, then one more for the unload
	h.run(30, 100*time.Millisecond)

	p, _ := h.w.Position(ship)
	assert.InDelta(t, 100, p.X, 1e-9)
	assert.Zero(t, p.Y)
	v, _ := k.Vessel.Get(ship)
	assert.Equal(t, port, v.DockedAt)

	load, _ := k.Cargo.Get(ship)
	stock, ok := k.Cargo.Get(port)
	require.True(t, ok, "stockpile created on first delivery")
	assert.Zero(t, load.Units)
	assert.Equal(t, 30, stock.Units)
	assert.Equal(t, int64(30), h.cargo.Delivered())

	require.Len(t, h.docked, 1, "docking fires once per arrival")
	assert.Equal(t, event.Docked{Vessel: ship, Port: port}, h.docked[0])

	vel, _ := k.Velocity.Get(ship)
	assert.Equal(t, component.Velocity{}, vel, "finished route stops the vessel")
}

func TestUndockAndRedock(t *testing.T) {
	h := newHarness(t)
	k := h.k
	port, _ := h.w.CreateEntity(
		world.At(spatial.Vec2{}),
		world.With(k.Port, component.Port{Name: "Long Beach", Radius: 3}),
	)
	ship, _ := h.w.CreateEntity(
		world.At(spatial.Vec2{X: 1}),
		world.With(k.Vessel, component.Vessel{Name: "Maersk"}),
	)

	h.run(1, time.Millisecond)
	v, _ := k.Vessel.Get(ship)
	assert.Equal(t, port, v.DockedAt)

	h.w.SetPosition(ship, spatial.Vec2{X: 50})
	h.run(1, time.Millisecond)
	v, _ = k.Vessel.Get(ship)
	assert.Zero(t, v.DockedAt)

	h.w.SetPosition(ship, spatial.Vec2{Y: 2})
	h.run(2, time.Millisecond)
	assert.Len(t, h.docked, 2)
}

func TestRouteLoops(t *testing.T) {
	h := newHarness(t)
	k := h.k
	ship, _ := h.w.CreateEntity(
		world.At(spatial.Vec2{}),
		world.With(k.Velocity, component.Velocity{}),
		world.With(k.Route, component.Route{
			Waypoints: []spatial.Vec2{{X: 1}, {}},
			Loop:      true,
		}),
	)
	// DefaultSpeed covers one unit within a 100ms step
	h.run(2, 100*time.Millisecond)
	p, _ := h.w.Position(ship)
	assert.Equal(t, spatial.Vec2{}, p)
	r, _ := k.Route.Get(ship)
	assert.Equal(t, 2, r.Next)

	h.run(1, 100*time.Millisecond)
	p, _ = h.w.Position(ship)
	assert.Equal(t, spatial.Vec2{X: 1}, p)
}

func TestMovementIgnoresZeroDt(t *testing.T) {
	h := newHarness(t)
	id, _ := h.w.CreateEntity(
		world.At(spatial.Vec2{X: 1, Y: 1}),
		world.With(h.k.Velocity, component.Velocity{X: 4}),
	)
	h.run(1, 0)
	p, _ := h.w.Position(id)
	assert.Equal(t, spatial.Vec2{X: 1, Y: 1}, p)

	h.run(1, 500*time.Millisecond)
	p, _ = h.w.Position(id)
	assert.Equal(t, spatial.Vec2{X: 3, Y: 1}, p)
}

func TestPersistenceInterval(t *testing.T) {
	h := newHarness(t)
	sink := &recordingSink{accept: true}
	ps := NewPersistenceSystem(sink, zap.NewNop(), 3)
	require.NoError(t, h.w.RegisterSystem(ps))
	_, err := h.w.CreateEntities(4, world.With(h.k.Cargo, component.Cargo{Units: 1}))
	require.NoError(t, err)

	h.run(7, time.Millisecond)
	require.Len(t, sink.snaps, 2)
	assert.Equal(t, uint64(2), sink.snaps[0].Step)
	assert.Equal(t, uint64(5), sink.snaps[1].Step)
	assert.Len(t, sink.snaps[0].Components["cargo"], 4)

	sink.accept = false
	assert.False(t, ps.SaveNow(h.w))
}

func TestRegisterKindsTwiceFails(t *testing.T) {
	h := newHarness(t)
	_, err := RegisterKinds(h.w)
	assert.ErrorIs(t, err, ecs.ErrDuplicateKind)
}
