package config

import (
	"testing"
)

func TestSandboxedVM(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "string library", code: `x = string.upper("hello")`},
		{name: "table library", code: `t = {1, 2, 3}; table.insert(t, 4)`},
		{name: "math library", code: `x = math.floor(3.7)`},
		{name: "base functions", code: `x = type("a"); y = tostring(1); z = tonumber("2")`},
		{name: "pairs", code: `for k, v in pairs({a = 1}) do end`},

		{name: "os blocked", code: `os.execute("ls")`, wantErr: true},
		{name: "io blocked", code: `io.open("/etc/passwd")`, wantErr: true},
		{name: "require blocked", code: `require("socket")`, wantErr: true},
		{name: "dofile blocked", code: `dofile("/tmp/x.lua")`, wantErr: true},
		{name: "loadstring blocked", code: `loadstring("return 1")()`, wantErr: true},
		{name: "load blocked", code: `load(function() return nil end)`, wantErr: true},
		{name: "debug blocked", code: `debug.getinfo(1)`, wantErr: true},
		{name: "package blocked", code: `x = package.path`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if tt.wantErr && err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
