// Package git locates the repository that contains the secret files and
// answers ignore queries against it using go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Common Git errors
var (
	ErrNotAGitRepo = errors.New("not a git repository")
	ErrInvalidRepo = errors.New("invalid git repository")
)

// Client answers questions about the repository enclosing a path.
type Client struct {
	path string // Any path inside the repository
}

// NewClient creates a new Git client for the given path. The path does not
// have to be the repository root.
func NewClient(path string) *Client {
	return &Client{
		path: path,
	}
}

func (c *Client) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(c.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err == gogit.ErrRepositoryNotExists {
		return nil, ErrNotAGitRepo
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepo, err.Error())
	}
	return repo, nil
}

// IsGitRepo checks if the path lies inside a git work tree.
// Returns (true, nil) if so, (false, nil) if not, (false, err) if corrupted.
func (c *Client) IsGitRepo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	_, err := c.open()
	if errors.Is(err, ErrNotAGitRepo) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Root returns the top-level directory of the enclosing work tree.
func (c *Client) Root(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}
	return worktree.Filesystem.Root(), nil
}

// IsIgnored reports whether target is excluded by the work tree's
// .gitignore files. target may be absolute or relative to the working
// directory and must lie inside the work tree.
func (c *Client) IsIgnored(ctx context.Context, target string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return false, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("get worktree: %w", err)
	}

	root, err := filepath.EvalSymlinks(worktree.Filesystem.Root())
	if err != nil {
		return false, fmt.Errorf("resolve worktree root: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", target, err)
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, fmt.Errorf("%s is outside the work tree %s", target, root)
	}

	patterns, err := gitignore.ReadPatterns(worktree.Filesystem, nil)
	if err != nil {
		return false, fmt.Errorf("read ignore patterns: %w", err)
	}
	patterns = append(patterns, worktree.Excludes...)

	matcher := gitignore.NewMatcher(patterns)
	return matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), false), nil
}
