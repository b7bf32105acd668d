package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/config"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

const driftScript = `
system = {
  name = "drift",
  priority = 200,
  parallel = true,
  requires = { "position", "velocity" },
}

function update(dt)
  for _, id in ipairs(query("position", "velocity")) do
    local p = get(id, "position")
    local v = get(id, "velocity")
    set(id, "position", { x = p.x + v.x * dt, y = p.y + v.y * dt })
  end
end
`

const scuttleScript = `
system = { name = "scuttle", requires = { "cargo" }, after = { "drift" } }

function update(dt)
  for _, id in ipairs(query("cargo")) do
    if get(id, "cargo").units == 0 and exists(id) then
      destroy(id)
    end
  end
end
`

func setup(t *testing.T) (*world.World, *system.Kinds, Bindings) {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Workers = 2
	cfg.Spatial.CellSize = 10
	w, err := world.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(w.Close)
	k, err := system.RegisterKinds(w)
	require.NoError(t, err)
	return w, k, ShippingBindings(k)
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// go test -run ^TestLuaSystems$ ./internal/scripting -count 1
func TestLuaSystems(t *testing.T) {
	w, k, b := setup(t)
	dir := t.TempDir()
	writeScript(t, dir, "drift.lua", driftScript)
	writeScript(t, dir, "scuttle.lua", scuttleScript)
	writeScript(t, dir, "README.txt", "not a script")

	systems, err := LoadSystems(dir, w, b, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, systems, 2)
	t.Cleanup(func() {
		for _, s := range systems {
			s.Close()
		}
	})

	drift := systems[0]
	assert.Equal(t, "drift", drift.Name())
	assert.Equal(t, 200, drift.Priority())
	assert.True(t, drift.Parallel())
	assert.True(t, drift.Requires().Has(uint16(k.Positions.Kind())))
	assert.Equal(t, []string{"drift"}, systems[1].After())

	for _, s := range systems {
		require.NoError(t, w.RegisterSystem(s, s.After()...))
	}

	mover, err := w.CreateEntity(
		world.At(spatial.Vec2{X: 1, Y: 1}),
		world.With(k.Velocity, component.Velocity{X: 2, Y: -1}),
	)
	require.NoError(t, err)
	empty, _ := w.CreateEntity(world.With(k.Cargo, component.Cargo{Units: 0}))
	full, _ := w.CreateEntity(world.With(k.Cargo, component.Cargo{Units: 5}))

	rep := w.Step(500 * time.Millisecond)
	require.Empty(t, rep.Faults)

	p, _ := w.Position(mover)
	assert.Equal(t, spatial.Vec2{X: 2, Y: 0.5}, p)
	assert.Len(t, w.SpatialQuery(spatial.Vec2{X: 2, Y: 0.5}, 0.01), 1, "writes reach the grid")
	assert.False(t, w.Alive(empty))
	assert.True(t, w.Alive(full))
}

func TestUndeclaredKindFaults(t *testing.T) {
	w, k, b := setup(t)
	dir := t.TempDir()
	writeScript(t, dir, "sneaky.lua", `
system = { name = "sneaky", requires = { "position" } }
function update(dt)
  for _, id in ipairs(query("cargo")) do
    set(id, "cargo", { units = 0 })
  end
end
`)
	s, err := LoadSystem(filepath.Join(dir, "sneaky.lua"), w, b, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, w.RegisterSystem(s))

	id, _ := w.CreateEntity(world.With(k.Cargo, component.Cargo{Units: 9}))
	rep := w.Step(time.Millisecond)
	require.Len(t, rep.Faults, 1)
	assert.Equal(t, "sneaky", rep.Faults[0].System)
	c, _ := k.Cargo.Get(id)
	assert.Equal(t, 9, c.Units)
}

func TestLoadSystemErrors(t *testing.T) {
	w, _, b := setup(t)
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"no_update", `system = { name = "x" }`},
		{"unknown_kind", "system = { requires = { \"fuel\" } }\nfunction update(dt) end"},
		{"syntax", "function update(dt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeScript(t, dir, tt.name+".lua", tt.body)
			_, err := LoadSystem(filepath.Join(dir, tt.name+".lua"), w, b, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadSystemsMissingDir(t *testing.T) {
	w, _, b := setup(t)
	systems, err := LoadSystems(filepath.Join(t.TempDir(), "none"), w, b, nil)
	require.NoError(t, err)
	assert.Empty(t, systems)
}

func TestDefaultNameFromFile(t *testing.T) {
	w, _, b := setup(t)
	dir := t.TempDir()
	writeScript(t, dir, "tides.lua", "function update(dt) end")
	s, err := LoadSystem(filepath.Join(dir, "tides.lua"), w, b, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "tides", s.Name())
	assert.False(t, s.Parallel())
	assert.True(t, s.Requires().IsZero())
}
