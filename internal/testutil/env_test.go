package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	// Verify runner variables point at the test directories
	vars := map[string]string{
		"GITHUB_WORKSPACE":  env.Workspace,
		"GITHUB_OUTPUT":     env.OutputFile,
		"GITHUB_ENV":        env.EnvFile,
		"GITHUB_PATH":       env.PathFile,
		"EJSON_KEYDIR":      env.KeyDir,
		"RUNNER_TOOL_CACHE": env.ToolCache,
	}
	for name, want := range vars {
		if got := os.Getenv(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if os.Getenv("GITHUB_ACTIONS") != "true" {
		t.Error("GITHUB_ACTIONS not set")
	}
	if os.Getenv("EJSON_DEBUG") != "" {
		t.Error("EJSON_DEBUG should be cleared")
	}

	// Verify directories and file commands exist under the temp directory
	for _, path := range []string{env.Workspace, env.KeyDir, env.ToolCache, env.OutputFile, env.EnvFile, env.PathFile} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("%s does not exist", path)
		}
		if !filepath.IsAbs(path) || !strings.HasPrefix(path, env.Root) {
			t.Errorf("path %s is not under %s", path, env.Root)
		}
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	// Test that multiple test runs get different directories
	testutil.SetupTestEnv(t)
	dir1 := os.Getenv("GITHUB_WORKSPACE")

	// Run again in a subtest
	t.Run("subtest", func(t *testing.T) {
		testutil.SetupTestEnv(t)
		dir2 := os.Getenv("GITHUB_WORKSPACE")

		if dir1 == dir2 {
			t.Error("expected different temp directories for different test contexts")
		}
	})
}

func TestWriteScript(t *testing.T) {
	path := testutil.WriteScript(t, t.TempDir(), "tool", "echo hi\n")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Error("script is not executable")
	}
	if got := testutil.ReadFile(t, path); got != "#!/bin/sh\necho hi\n" {
		t.Errorf("script content = %q", got)
	}
}
