package git

import (
	"context"
)

// EnvWorkspace is set by the Actions runner to the checkout directory.
const EnvWorkspace = "GITHUB_WORKSPACE"

// WorkspaceRoot returns the directory every input path must stay inside:
// GITHUB_WORKSPACE when set, otherwise the enclosing git work tree of cwd,
// otherwise cwd itself.
func WorkspaceRoot(ctx context.Context, getenv func(string) string, cwd string) string {
	if ws := getenv(EnvWorkspace); ws != "" {
		return ws
	}
	if root, err := NewClient(cwd).Root(ctx); err == nil {
		return root
	}
	return cwd
}
