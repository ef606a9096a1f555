// Package testutil provides utilities for running the action in isolation
// from the host runner.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the paths created by SetupTestEnv.
type Env struct {
	Root       string // Temp directory holding everything below
	Workspace  string // GITHUB_WORKSPACE
	OutputFile string // GITHUB_OUTPUT
	EnvFile    string // GITHUB_ENV
	PathFile   string // GITHUB_PATH
	KeyDir     string // EJSON_KEYDIR
	ToolCache  string // RUNNER_TOOL_CACHE
}

// SetupTestEnv creates isolated runner directories and file commands for
// each test and points the GitHub Actions variables at them.
// This ensures tests never touch:
// - The real key directory (/opt/ejson/keys)
// - The file commands of a runner executing the test suite
// - A shared tool cache
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	env := &Env{
		Root:       tmpDir,
		Workspace:  filepath.Join(tmpDir, "workspace"),
		OutputFile: filepath.Join(tmpDir, "runner", "output"),
		EnvFile:    filepath.Join(tmpDir, "runner", "env"),
		PathFile:   filepath.Join(tmpDir, "runner", "path"),
		KeyDir:     filepath.Join(tmpDir, "keys"),
		ToolCache:  filepath.Join(tmpDir, "toolcache"),
	}

	for _, dir := range []string{env.Workspace, filepath.Dir(env.OutputFile), env.KeyDir, env.ToolCache} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	for _, file := range []string{env.OutputFile, env.EnvFile, env.PathFile} {
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			t.Fatalf("failed to create file command %s: %v", file, err)
		}
	}

	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_WORKSPACE", env.Workspace)
	t.Setenv("GITHUB_OUTPUT", env.OutputFile)
	t.Setenv("GITHUB_ENV", env.EnvFile)
	t.Setenv("GITHUB_PATH", env.PathFile)
	t.Setenv("EJSON_KEYDIR", env.KeyDir)
	t.Setenv("RUNNER_TOOL_CACHE", env.ToolCache)
	t.Setenv("EJSON_DEBUG", "")
	t.Setenv("RUNNER_DEBUG", "")

	return env
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// WriteFile writes content to path, creating parent directories, or fails
// the test.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WriteScript writes an executable shell script standing in for an external
// tool and returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("cannot create stub binary: %v", err)
	}
	return path
}
