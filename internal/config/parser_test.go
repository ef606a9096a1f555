package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/platform"
)

func TestParser_ParseString(t *testing.T) {
	detector := platform.StaticDetector{Info: &platform.Info{OS: "linux", Arch: "arm64", ArchRaw: "aarch64"}}

	tests := []struct {
		name    string
		code    string
		want    Values
		wantErr string
	}{
		{
			name: "strings, booleans and numbers",
			code: `
ejson = {
  action = "decrypt",
  file_path = "secrets.ejson",
  populate_env_vars = true,
  prefix_env_vars = "APP_",
  version = 1.5,
}`,
			want: Values{
				InputAction:          "decrypt",
				InputFilePath:        "secrets.ejson",
				InputPopulateEnvVars: "true",
				InputPrefixEnvVars:   "APP_",
				InputVersion:         "1.5",
			},
		},
		{
			name: "platform conditionals",
			code: `
ejson = {
  action = "encrypt",
  file_path = "secrets.ejson",
  install_dir = platform.when(platform.is_arm64, "/opt/arm"),
  keyring = platform.when(platform.is_macos, "/keys.asc"),
}`,
			want: Values{
				InputAction:     "encrypt",
				InputFilePath:   "secrets.ejson",
				InputInstallDir: "/opt/arm",
			},
		},
		{
			name:    "missing table",
			code:    `config = {}`,
			wantErr: "missing or invalid 'ejson' table",
		},
		{
			name:    "unknown input",
			code:    `ejson = { colour = "red" }`,
			wantErr: "unknown input",
		},
		{
			name:    "nested value",
			code:    `ejson = { action = { "decrypt" } }`,
			wantErr: "invalid value",
		},
		{
			name:    "syntax error",
			code:    `ejson = {`,
			wantErr: "Lua error",
		},
		{
			name:    "sandbox escape",
			code:    `ejson = { action = os.getenv("HOME") }`,
			wantErr: "Lua error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(detector).ParseString(context.Background(), tt.code)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected *ParseError, got %T", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_ParseString_DetectorError(t *testing.T) {
	detector := platform.StaticDetector{Err: errors.New("boom")}
	_, err := NewParser(detector).ParseString(context.Background(), `ejson = {}`)
	if err == nil || !strings.Contains(err.Error(), "platform detection failed") {
		t.Fatalf("expected platform detection error, got %v", err)
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "ejson.lua")
		if err := os.WriteFile(path, []byte(`ejson = { action = "decrypt" }`), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := NewParser(nil).ParseFile(context.Background(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[InputAction] != "decrypt" {
			t.Errorf("action = %q, want decrypt", got[InputAction])
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewParser(nil).ParseFile(context.Background(), filepath.Join(dir, "nope.lua"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "big.lua")
		big := "-- " + strings.Repeat("x", MaxConfigSize) + "\n"
		if err := os.WriteFile(path, []byte(big), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := NewParser(nil).ParseFile(context.Background(), path)
		if err == nil || !strings.Contains(err.Error(), "too large") {
			t.Fatalf("expected size error, got %v", err)
		}
	})
}
