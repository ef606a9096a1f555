package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := gogit.PlainInit(dir, false); err != nil {
		t.Fatalf("cannot initialize git repo: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestClient_IsGitRepo(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	sub := filepath.Join(repo, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	ok, err := NewClient(sub).IsGitRepo(ctx)
	if err != nil || !ok {
		t.Errorf("IsGitRepo(sub) = %v, %v; want true, nil", ok, err)
	}

	ok, err = NewClient(t.TempDir()).IsGitRepo(ctx)
	if err != nil || ok {
		t.Errorf("IsGitRepo(plain dir) = %v, %v; want false, nil", ok, err)
	}
}

func TestClient_Root(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	sub := filepath.Join(repo, "config", "secrets")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := NewClient(sub).Root(ctx)
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	if got != repo {
		t.Errorf("Root() = %q, want %q", got, repo)
	}

	if _, err := NewClient(t.TempDir()).Root(ctx); !errors.Is(err, ErrNotAGitRepo) {
		t.Errorf("expected ErrNotAGitRepo, got %v", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient(".").Root(ctx); err == nil {
		t.Error("Root() should fail on a cancelled context")
	}
	if _, err := NewClient(".").IsIgnored(ctx, "x"); err == nil {
		t.Error("IsIgnored() should fail on a cancelled context")
	}
}

func TestClient_IsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	if err := os.WriteFile(filepath.Join(repo, ".gitignore"), []byte("*.env\n/decrypted/\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "matched by glob", path: filepath.Join(repo, "out.env"), want: true},
		{name: "inside ignored dir", path: filepath.Join(repo, "decrypted", "secrets.json"), want: true},
		{name: "not ignored", path: filepath.Join(repo, "secrets.json"), want: false},
		{name: "nested not ignored", path: filepath.Join(repo, "config", "secrets.json"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClient(repo).IsIgnored(ctx, tt.path)
			if err != nil {
				t.Fatalf("IsIgnored() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if _, err := NewClient(repo).IsIgnored(ctx, filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error for a path outside the work tree")
	}
}

func TestWorkspaceRoot(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	sub := filepath.Join(repo, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	plain := t.TempDir()

	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	tests := []struct {
		name   string
		getenv func(string) string
		cwd    string
		want   string
	}{
		{name: "GITHUB_WORKSPACE wins", getenv: env(map[string]string{EnvWorkspace: "/ws"}), cwd: sub, want: "/ws"},
		{name: "git root", getenv: env(nil), cwd: sub, want: repo},
		{name: "cwd fallback", getenv: env(nil), cwd: plain, want: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkspaceRoot(ctx, tt.getenv, tt.cwd); got != tt.want {
				t.Errorf("WorkspaceRoot() = %q, want %q", got, tt.want)
			}
		})
	}
}
