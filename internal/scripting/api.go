package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
)

// register installs the script API. Entity ids are passed as Lua numbers,
// which hold them exactly while generations stay below 2^21.
func (s *LuaSystem) register() {
	vm := s.vm
	vm.SetGlobal("query", vm.NewFunction(s.luaQuery))
	vm.SetGlobal("exists", vm.NewFunction(s.luaExists))
	vm.SetGlobal("destroy", vm.NewFunction(s.luaDestroy))
	vm.SetGlobal("get", vm.NewFunction(s.luaGet))
	vm.SetGlobal("set", vm.NewFunction(s.luaSet))
	vm.SetGlobal("log", vm.NewFunction(s.luaLog))
}

// query(kind, ...) -> { id, ... }
func (s *LuaSystem) luaQuery(L *lua.LState) int {
	var mask bitset.Mask
	for i := 1; i <= L.GetTop(); i++ {
		name := L.CheckString(i)
		k, ok := s.w.Registry().Kind(name)
		if !ok {
			L.ArgError(i, "unknown component "+name)
			return 0
		}
		mask = mask.With(uint16(k))
	}
	ids := s.w.QueryMask(mask)
	t := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		t.Append(lua.LNumber(id))
	}
	L.Push(t)
	return 1
}

// exists(id) -> bool
func (s *LuaSystem) luaExists(L *lua.LState) int {
	L.Push(lua.LBool(s.w.Alive(entityArg(L, 1))))
	return 1
}

// destroy(id) queues id for destruction at the end of the step.
func (s *LuaSystem) luaDestroy(L *lua.LState) int {
	s.w.MarkForDestruction(entityArg(L, 1))
	return 0
}

func (s *LuaSystem) binding(L *lua.LState, n int) (Binding, bool) {
	name := L.CheckString(n)
	bd, ok := s.declared[name]
	if !ok {
		L.ArgError(n, "component "+name+" is not bound or not in requires")
	}
	return bd, ok
}

// get(id, kind) -> table or nil
func (s *LuaSystem) luaGet(L *lua.LState) int {
	id := entityArg(L, 1)
	bd, ok := s.binding(L, 2)
	if !ok {
		return 0
	}
	f, ok := bd.get(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	t := L.CreateTable(0, len(f))
	for k, v := range f {
		t.RawSetString(k, lua.LNumber(v))
	}
	L.Push(t)
	return 1
}

// set(id, kind, table) -> bool
func (s *LuaSystem) luaSet(L *lua.LState) int {
	id := entityArg(L, 1)
	bd, ok := s.binding(L, 2)
	if !ok {
		return 0
	}
	tbl := L.CheckTable(3)
	f := make(Fields)
	tbl.ForEach(func(k, v lua.LValue) {
		if n, ok := v.(lua.LNumber); ok {
			f[k.String()] = float64(n)
		}
	})
	L.Push(lua.LBool(bd.set(id, f)))
	return 1
}

// log(msg)
func (s *LuaSystem) luaLog(L *lua.LState) int {
	s.log.Info(L.CheckString(1), zap.Uint64("step", s.w.StepCount()))
	return 0
}
