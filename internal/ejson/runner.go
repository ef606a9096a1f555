package ejson

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result is the captured outcome of one external command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes an external command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts name with args and env and captures both output streams. A
// non-zero exit is reported through Result.ExitCode, not as an error; the
// error is reserved for commands that could not be run at all.
func (ExecRunner) Run(ctx context.Context, name string, args []string, env []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil && ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
