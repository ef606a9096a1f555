// Package actions implements the parts of the GitHub Actions runner protocol
// that ejson-action needs: step outputs, exported environment variables,
// PATH additions and secret masking.
//
// Values are written through the runner's file commands ($GITHUB_OUTPUT,
// $GITHUB_ENV, $GITHUB_PATH) using a random heredoc delimiter. When those
// files are not available, such as in a local run, outputs fall back to
// stdout workflow commands and environment changes apply to the current
// process only.
package actions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
)

// Runner file command environment variables.
const (
	EnvOutput  = "GITHUB_OUTPUT"
	EnvEnv     = "GITHUB_ENV"
	EnvPath    = "GITHUB_PATH"
	EnvActions = "GITHUB_ACTIONS"
)

// Runtime talks to the Actions runner.
type Runtime struct {
	out       io.Writer
	getenv    func(string) string
	setenv    func(key, value string) error
	delimiter func() string
}

// NewRuntime creates a Runtime that writes workflow commands to out.
func NewRuntime(out io.Writer) *Runtime {
	if out == nil {
		out = os.Stdout
	}
	return &Runtime{
		out:    out,
		getenv: os.Getenv,
		setenv: os.Setenv,
		delimiter: func() string {
			return "ghadelimiter_" + uuid.NewString()
		},
	}
}

// IsActions reports whether the process runs inside a GitHub Actions job.
func (r *Runtime) IsActions() bool {
	return r.getenv(EnvActions) == "true"
}

// SetOutput sets a step output.
func (r *Runtime) SetOutput(name, value string) error {
	if name == "" {
		return fmt.Errorf("output name cannot be empty")
	}

	if file := r.getenv(EnvOutput); file != "" {
		return r.appendKeyValue(file, name, value)
	}

	_, err := fmt.Fprintf(r.out, "::set-output name=%s::%s\n",
		logging.EscapeProperty(name), logging.EscapeData(value))
	return err
}

// ExportVariable sets an environment variable for this process and for all
// later steps of the job.
func (r *Runtime) ExportVariable(name, value string) error {
	if name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}

	if err := r.setenv(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}

	if file := r.getenv(EnvEnv); file != "" {
		return r.appendKeyValue(file, name, value)
	}
	return nil
}

// AddPath prepends dir to PATH for this process and for later steps.
func (r *Runtime) AddPath(dir string) error {
	current := r.getenv("PATH")
	if !containsPath(current, dir) {
		updated := dir
		if current != "" {
			updated = dir + string(os.PathListSeparator) + current
		}
		if err := r.setenv("PATH", updated); err != nil {
			return fmt.Errorf("update PATH: %w", err)
		}
	}

	if file := r.getenv(EnvPath); file != "" {
		return appendLine(file, dir)
	}
	return nil
}

func containsPath(list, dir string) bool {
	for _, p := range filepath.SplitList(list) {
		if p == dir {
			return true
		}
	}
	return false
}

// SetSecret registers value with the runner's log masker. Each line is
// registered separately since the masker matches single lines only.
func (r *Runtime) SetSecret(value string) {
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(r.out, "::add-mask::%s\n", logging.EscapeData(line))
	}
}

// appendKeyValue writes a heredoc-style file command entry.
func (r *Runtime) appendKeyValue(file, key, value string) error {
	msg, err := keyValueMessage(key, value, r.delimiter())
	if err != nil {
		return err
	}
	return appendLine(file, msg)
}

// keyValueMessage formats key<<delimiter / value / delimiter. The delimiter
// must not occur in either key or value, otherwise a crafted value could
// inject extra entries.
func keyValueMessage(key, value, delimiter string) (string, error) {
	if strings.Contains(key, delimiter) {
		return "", fmt.Errorf("unexpected input: name should not contain the delimiter %q", delimiter)
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("unexpected input: value should not contain the delimiter %q", delimiter)
	}
	return key + "<<" + delimiter + "\n" + value + "\n" + delimiter, nil
}

func appendLine(file, line string) error {
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(file), err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(file), err)
	}
	return f.Close()
}
