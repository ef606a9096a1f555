package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable exposes info to Lua as a read-only global "platform".
// It must be called before any user configuration code runs.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	table := L.NewTable()

	L.SetField(table, "os", lua.LString(info.OS))
	L.SetField(table, "arch", lua.LString(info.Arch))
	L.SetField(table, "arch_raw", lua.LString(info.ArchRaw))
	L.SetField(table, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(table, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(table, "is_amd64", lua.LBool(info.IsAMD64()))
	L.SetField(table, "is_arm64", lua.LBool(info.IsARM64()))

	// when(cond, value) returns value if cond is true, nil otherwise.
	L.SetField(table, "when", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", readOnly(L, table))
	return nil
}

// readOnly wraps table in an empty proxy whose metatable forwards reads and
// rejects writes.
func readOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
