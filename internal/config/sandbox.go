package config

import (
	lua "github.com/yuin/gopher-lua"
)

// newSandboxedVM creates a Lua VM for configuration files.
//
// Only the base, table, string and math libraries are opened, so os, io,
// package, debug and channel are never reachable. Functions that load code
// from disk or strings are removed from the base library.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       256,
		RegistrySize:        1024 * 8,
		IncludeGoStackTrace: false,
	})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}
