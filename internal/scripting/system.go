package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// LuaSystem is a system whose update logic lives in a Lua script. Every
// LuaSystem owns its own VM, so parallel scripts never share a state.
//
// A script declares itself with a global table and a function:
//
//	system = { name = "drift", priority = 200, parallel = true,
//	           requires = { "position", "velocity" }, after = { "route" } }
//	function update(dt) ... end
//
// get and set only accept kinds listed in requires.
type LuaSystem struct {
	name     string
	file     string
	priority int
	parallel bool
	requires bitset.Mask
	declared map[string]Binding
	after    []string

	vm     *lua.LState
	update lua.LValue
	log    *zap.Logger
	w      *world.World
}

func (s *LuaSystem) Name() string          { return s.name }
func (s *LuaSystem) Priority() int         { return s.priority }
func (s *LuaSystem) Parallel() bool        { return s.parallel }
func (s *LuaSystem) Requires() bitset.Mask { return s.requires }

// After lists the systems this script must run after.
func (s *LuaSystem) After() []string { return s.after }

// Update calls the script's update(dt). A Lua runtime error is raised as a
// panic so the scheduler records it as a fault of this system.
func (s *LuaSystem) Update(dt time.Duration, w *world.World) {
	s.w = w
	if err := s.vm.CallByParam(lua.P{
		Fn:      s.update,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt.Seconds())); err != nil {
		panic(fmt.Errorf("lua %s: %w", s.file, err))
	}
}

func (s *LuaSystem) Close() {
	s.vm.Close()
}

// LoadSystems loads every .lua file in dir as a LuaSystem. A missing dir
// loads nothing.
func LoadSystems(dir string, w *world.World, b Bindings, log *zap.Logger) ([]*LuaSystem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*LuaSystem
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := LoadSystem(path, w, b, log)
		if err != nil {
			for _, loaded := range out {
				loaded.Close()
			}
			return nil, err
		}
		out = append(out, s)
		log.Debug("loaded lua system",
			zap.String("file", path),
			zap.String("system", s.name),
			zap.Bool("parallel", s.parallel))
	}
	return out, nil
}

// LoadSystem loads one script file.
func LoadSystem(path string, w *world.World, b Bindings, log *zap.Logger) (*LuaSystem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	s := &LuaSystem{
		name:     strings.TrimSuffix(filepath.Base(path), ".lua"),
		file:     path,
		declared: make(map[string]Binding),
		vm:       vm,
		log:      log,
		w:        w,
	}
	s.register()

	if err := vm.DoFile(path); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := s.declare(w, b); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.log = log.With(zap.String("script", s.name))
	return s, nil
}

func (s *LuaSystem) declare(w *world.World, b Bindings) error {
	s.update = s.vm.GetGlobal("update")
	if s.update.Type() != lua.LTFunction {
		return fmt.Errorf("global function update(dt) is missing")
	}

	decl, ok := s.vm.GetGlobal("system").(*lua.LTable)
	if !ok {
		return nil
	}
	if n, ok := decl.RawGetString("name").(lua.LString); ok && n != "" {
		s.name = string(n)
	}
	s.priority = lInt(decl, "priority")
	s.parallel = lua.LVAsBool(decl.RawGetString("parallel"))

	var err error
	forEachString(decl.RawGetString("requires"), func(name string) {
		k, ok := w.Registry().Kind(name)
		if !ok {
			if err == nil {
				err = fmt.Errorf("requires unknown component %q", name)
			}
			return
		}
		s.requires = s.requires.With(uint16(k))
		if bd, ok := b[name]; ok {
			s.declared[name] = bd
		}
	})
	if err != nil {
		return err
	}
	forEachString(decl.RawGetString("after"), func(name string) {
		s.after = append(s.after, name)
	})
	return nil
}

func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

func forEachString(v lua.LValue, fn func(string)) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return
	}
	t.ForEach(func(_, v lua.LValue) {
		if str, ok := v.(lua.LString); ok {
			fn(string(str))
		}
	})
}

func entityArg(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(uint64(L.CheckNumber(n)))
}
