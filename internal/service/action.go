// Package service runs one invocation of the action: optional install,
// input validation, the external tool, and distribution of the result.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/binary"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/config"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/distribute"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/payload"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/validate"
)

// Installer installs a backend tool and puts it on PATH.
type Installer interface {
	Install(ctx context.Context, opts binary.InstallOptions) (*binary.InstallResult, error)
}

// Invoker runs the backend tool.
type Invoker interface {
	Tool() string
	Encrypt(ctx context.Context, path string) (string, error)
	Decrypt(ctx context.Context, path string, format payload.Format) (string, error)
	DumpFile(op config.Operation, path string) error
}

// IgnoreChecker reports whether a path is excluded from version control.
type IgnoreChecker interface {
	IsIgnored(ctx context.Context, target string) (bool, error)
}

// Deps holds the collaborators of an Action.
type Deps struct {
	Installer Installer // Required when Inputs.Install is set
	Invoker   Invoker
	Sink      distribute.Sink
	Ignore    IgnoreChecker // Optional
	Logger    logging.Logger
	Root      string // Workspace root
	Now       func() time.Time
}

// Outcome describes a successful run.
type Outcome struct {
	Tool    string
	Action  config.Operation
	File    *validate.SecretFile
	Install *binary.InstallResult // Nil unless an install was requested

	// Output is the tool's stdout: the decrypted document for decrypt.
	Output  string
	Outputs *distribute.Result // Nil unless populate-outputs
	EnvVars *distribute.Result // Nil unless populate-env-vars

	Duration time.Duration
}

// Action is one configured run.
type Action struct {
	inputs      config.Inputs
	installer   Installer
	invoker     Invoker
	sink        distribute.Sink
	ignore      IgnoreChecker
	logger      logging.Logger
	root        string
	now         func() time.Time
	distributor *distribute.Distributor
}

// NewAction creates an action for inputs.
func NewAction(inputs config.Inputs, deps Deps) *Action {
	if deps.Logger == nil {
		deps.Logger = logging.Noop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Action{
		inputs:      inputs,
		installer:   deps.Installer,
		invoker:     deps.Invoker,
		sink:        deps.Sink,
		ignore:      deps.Ignore,
		logger:      deps.Logger,
		root:        deps.Root,
		now:         deps.Now,
		distributor: distribute.New(deps.Sink, deps.Logger, deps.Root),
	}
}

// Run executes the action. Every error is terminal.
func (a *Action) Run(ctx context.Context) (*Outcome, error) {
	start := a.now()
	in := a.inputs

	// 1. Inputs and file type, before anything runs
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := validate.DetectFileType(in.FilePath); err != nil {
		return nil, err
	}
	if a.invoker == nil || a.sink == nil {
		return nil, fmt.Errorf("invoker and sink are required")
	}

	outcome := &Outcome{Tool: a.invoker.Tool(), Action: in.Action}

	// 2. Install
	if in.Install {
		if a.installer == nil {
			return nil, fmt.Errorf("install requested but no installer configured")
		}
		res, err := a.installer.Install(ctx, binary.InstallOptions{
			Tool:    binary.Tool(in.ResolvedBackend()),
			Version: in.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("install %s: %w", in.ResolvedBackend(), err)
		}
		outcome.Install = res
	}

	// 3. Paths
	file, err := validate.Check(in.FilePath, a.root)
	if err != nil {
		return nil, err
	}
	outcome.File = file
	if in.OutFile != "" {
		if err := validate.PathWithinWorkspace(in.OutFile, a.root, config.InputOutFile); err != nil {
			return nil, err
		}
	}
	if in.ResolvedBackend() == config.BackendEjsonKMS && in.AWSRegion != "" && !validate.Region(in.AWSRegion) {
		a.logger.Warn(fmt.Sprintf("AWS region %q is not known to this build, continuing", in.AWSRegion))
	}

	// 4. Debug dump
	if err := a.invoker.DumpFile(in.Action, file.Path); err != nil {
		return nil, err
	}

	// 5. Run the tool
	switch in.Action {
	case config.OperationEncrypt:
		out, err := a.invoker.Encrypt(ctx, file.Path)
		if err != nil {
			return nil, err
		}
		outcome.Output = out
	case config.OperationDecrypt:
		out, err := a.invoker.Decrypt(ctx, file.Path, file.Format)
		if err != nil {
			return nil, err
		}
		outcome.Output = out
		if err := a.distribute(ctx, file, out, outcome); err != nil {
			return nil, err
		}
	}

	outcome.Duration = a.now().Sub(start)
	return outcome, nil
}

// distribute hands decrypted content to the output, the out-file and, when
// requested, per-key outputs and environment variables.
func (a *Action) distribute(ctx context.Context, file *validate.SecretFile, content string, outcome *Outcome) error {
	in := a.inputs

	a.maskSecrets(content, file.Format)
	if err := a.sink.SetOutput(config.OutputDecrypted, content); err != nil {
		return fmt.Errorf("set output %s: %w", config.OutputDecrypted, err)
	}

	if in.OutFile != "" {
		if err := a.distributor.WriteOutFile(in.OutFile, content); err != nil {
			return err
		}
		a.warnIfTracked(ctx, in.OutFile)
	}

	if !in.PopulationRequested() {
		return nil
	}

	p, err := payload.Parse(content, file.Format)
	if err != nil {
		return fmt.Errorf("parse decrypted content: %w", err)
	}
	if err := validate.EnvironmentKeyPresence(p); err != nil {
		return err
	}

	if in.PopulateOutputs {
		res, err := a.distributor.PopulateOutputs(p, in.PrefixOutputs)
		if err != nil {
			return err
		}
		outcome.Outputs = res
	}
	if in.PopulateEnvVars {
		res, err := a.distributor.PopulateEnvVars(p, in.PrefixEnvVars)
		if err != nil {
			return err
		}
		outcome.EnvVars = res
	}
	return nil
}

// maskSecrets registers each decrypted value with the log masker. The whole
// document is masked line by line only when it cannot be parsed.
func (a *Action) maskSecrets(content string, format payload.Format) {
	values, err := payload.SecretValues(content, format)
	if err != nil {
		a.logger.Debug("masking decrypted content line by line", "error", err)
		a.sink.SetSecret(content)
		return
	}
	for _, v := range values {
		a.sink.SetSecret(v)
	}
}

// warnIfTracked warns when the out-file could be committed by a later step.
func (a *Action) warnIfTracked(ctx context.Context, path string) {
	if a.ignore == nil {
		return
	}
	ignored, err := a.ignore.IsIgnored(ctx, path)
	if err != nil {
		a.logger.Debug("could not check out-file against .gitignore", "error", err)
		return
	}
	if !ignored {
		a.logger.Warn(fmt.Sprintf("out-file %s is not ignored by git; make sure decrypted secrets are not committed", path))
	}
}
