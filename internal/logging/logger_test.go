package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestNew_ActionsFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Out: &buf, Actions: true, Debug: true})

	log.Debug("resolving", "arch", "amd64")
	log.Info("Decrypted successfully...")
	log.Warn("skipping reserved variable", "name", "PATH")
	log.Error("multi\nline 100%")

	want := []string{
		"::debug::resolving arch=amd64",
		"Decrypted successfully...",
		"::warning::skipping reserved variable name=PATH",
		"::error::multi%0Aline 100%25",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNew_DebugDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Out: &buf, Actions: true})

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output written with debug disabled: %q", buf.String())
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	log := New(Options{Out: &buf})

	log.Info("installed", "tool", "ejson", "version", "1.5.2")
	log.Warn("careful")

	want := "[info] installed tool=ejson version=1.5.2\n[warn] careful\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestFields_OddCount(t *testing.T) {
	f := fields([]interface{}{"a", 1, "dangling"})
	if f["a"] != 1 {
		t.Errorf("a = %v, want 1", f["a"])
	}
	if f["!BADKEY"] != "dangling" {
		t.Errorf("!BADKEY = %v, want dangling", f["!BADKEY"])
	}
}

func TestEscapeProperty(t *testing.T) {
	got := EscapeProperty("a:b,c%\n")
	want := "a%3Ab%2Cc%25%0A"
	if got != want {
		t.Errorf("EscapeProperty() = %q, want %q", got, want)
	}
}

func TestNoop(t *testing.T) {
	log := Noop()
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
}
