package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/actions"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/binary"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/config"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/ejson"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/git"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/platform"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/service"
)

// errReported marks an error that was already logged.
var errReported = errors.New("reported")

// runOptions holds the raw flag values of a run.
type runOptions struct {
	action          string
	filePath        string
	backend         string
	privateKey      string
	awsRegion       string
	outFile         string
	populateEnvVars bool
	populateOutputs bool
	prefixEnvVars   string
	prefixOutputs   string

	install installOptions

	configFile string
	debug      bool
}

// installOptions holds the flags shared by a run and the install command.
type installOptions struct {
	enabled     bool
	version     string
	installDir  string
	keyring     string
	githubToken string
}

func (o *runOptions) inputs() config.Inputs {
	return config.Inputs{
		Action:          config.Operation(o.action),
		FilePath:        o.filePath,
		Backend:         config.Backend(o.backend),
		PrivateKey:      o.privateKey,
		AWSRegion:       o.awsRegion,
		OutFile:         o.outFile,
		PopulateEnvVars: o.populateEnvVars,
		PopulateOutputs: o.populateOutputs,
		PrefixEnvVars:   o.prefixEnvVars,
		PrefixOutputs:   o.prefixOutputs,
		Install:         o.install.enabled,
		Version:         o.install.version,
		InstallDir:      o.install.installDir,
		Keyring:         o.install.keyring,
		GitHubToken:     o.install.githubToken,
	}
}

func (o *installOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.version, config.InputVersion, "", "Tool version to install (default: latest known release)")
	fs.StringVar(&o.installDir, config.InputInstallDir, "", "Directory holding installed tools (default: $RUNNER_TOOL_CACHE/ejson-action)")
	fs.StringVar(&o.keyring, config.InputKeyring, "", "Armored GPG keyring; when set, release signatures are verified")
	fs.StringVar(&o.githubToken, config.InputGitHubToken, "", "Token for the GitHub releases API")
}

// env abstracts the process environment for tests.
type env struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	lookup func(string) (string, bool)
}

func osEnv(stdout, stderr io.Writer) *env {
	return &env{stdout: stdout, stderr: stderr, getenv: os.Getenv, lookup: os.LookupEnv}
}

func newRootCmd(e *env) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "ejson-action",
		Short: "Encrypt or decrypt ejson secret files in CI",
		Long: `ejson-action runs ejson or ejsonkms against a secret file.

Decrypted content is written to the "decrypted" step output and, optionally,
to a file, to one step output per key of the "environment" mapping, and to
environment variables of later steps. Every value is masked in the job log.

Inputs are read from flags, from INPUT_<NAME> variables set by the Actions
runner, and from an optional Lua configuration file, in that order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd.Flags(), opts, e)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.action, config.InputAction, "", "Operation to run: encrypt or decrypt")
	fs.StringVar(&opts.filePath, config.InputFilePath, "", "Secret file (.json, .ejson, .yaml, .yml, .eyaml, .eyml)")
	fs.StringVar(&opts.backend, config.InputBackend, "", "Tool to run: ejson or ejsonkms (default: derived from the key inputs)")
	fs.StringVar(&opts.privateKey, config.InputPrivateKey, "", "ejson private key used for decryption")
	fs.StringVar(&opts.awsRegion, config.InputAWSRegion, "", "AWS region of the KMS key used by ejsonkms")
	fs.StringVar(&opts.outFile, config.InputOutFile, "", "Write the decrypted content to this file")
	fs.BoolVar(&opts.populateEnvVars, config.InputPopulateEnvVars, false, "Export each key of the environment mapping as a variable")
	fs.BoolVar(&opts.populateOutputs, config.InputPopulateOutputs, false, "Set a step output for each key of the environment mapping")
	fs.StringVar(&opts.prefixEnvVars, config.InputPrefixEnvVars, "", "Prefix for exported variable names")
	fs.StringVar(&opts.prefixOutputs, config.InputPrefixOutputs, "", "Prefix for output names")
	fs.BoolVar(&opts.install.enabled, config.InputInstall, false, "Install the tool before running it")
	opts.install.addFlags(fs)
	fs.StringVar(&opts.configFile, "config", "", "Lua configuration file")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInstallCmd(e))
	cmd.AddCommand(newVersionCmd(e))

	return cmd
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return executeWith(ctx, args, osEnv(stdout, stderr))
}

func executeWith(ctx context.Context, args []string, e *env) int {
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(e.stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func runAction(ctx context.Context, fs *pflag.FlagSet, opts *runOptions, e *env) error {
	if err := setFlagsFromEnv(fs, e.lookup); err != nil {
		return err
	}

	runtime := actions.NewRuntime(e.stdout)
	logger := logging.New(logging.Options{
		Out:     e.stdout,
		Actions: runtime.IsActions(),
		Debug:   debugEnabled(opts.debug, e.getenv),
	})

	if opts.configFile != "" {
		parser := config.NewParser(platform.NewDetector())
		if err := applyConfigFile(ctx, fs, parser, opts.configFile); err != nil {
			return err
		}
		logger.Debug("configuration file loaded", "path", opts.configFile)
	}

	in := opts.inputs()
	backend := in.ResolvedBackend()

	fail := func(err error) error {
		logger.Error(fmt.Sprintf("[ERROR] Failure on %s %s: %v", backend, in.Action, err))
		return fmt.Errorf("%w: %v", errReported, err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fail(fmt.Errorf("get working directory: %w", err))
	}
	root := git.WorkspaceRoot(ctx, e.getenv, cwd)

	deps := service.Deps{
		Invoker: ejson.NewClient(ejson.Options{
			Backend:    backend,
			PrivateKey: in.PrivateKey,
			AWSRegion:  in.AWSRegion,
			KeyDir:     ejson.KeyDir(e.getenv),
			Debug:      e.getenv("EJSON_DEBUG") == "true",
			Logger:     logger,
		}),
		Sink:   runtime,
		Ignore: git.NewClient(root),
		Logger: logger,
		Root:   root,
	}
	if in.Install {
		manager, err := newManager(&opts.install, runtime, logger, e.getenv)
		if err != nil {
			return fail(err)
		}
		deps.Installer = &spinnerInstaller{
			installer: manager,
			enabled:   spinnerEnabled(runtime, debugEnabled(opts.debug, e.getenv)),
		}
	}

	outcome, err := service.NewAction(in, deps).Run(ctx)
	if err != nil {
		return fail(err)
	}
	logger.Debug("run complete", "tool", outcome.Tool, "action", outcome.Action, "duration", outcome.Duration)
	return nil
}

// newManager creates the installer for the install inputs.
func newManager(opts *installOptions, publisher binary.PathPublisher, logger logging.Logger, getenv func(string) string) (*binary.Manager, error) {
	installDir := opts.installDir
	if installDir == "" {
		installDir = defaultInstallDir(getenv)
	}
	return binary.NewManager(binary.Config{
		InstallDir:  installDir,
		APIBaseURL:  getenv("GITHUB_API_URL"),
		Token:       opts.githubToken,
		KeyringPath: opts.keyring,
		Publisher:   publisher,
		Logger:      logger,
	})
}
