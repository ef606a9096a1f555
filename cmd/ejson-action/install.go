package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/actions"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/binary"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/service"
)

// spinnerInstaller shows a spinner while an install runs.
type spinnerInstaller struct {
	installer service.Installer
	enabled   bool
}

func (s *spinnerInstaller) Install(ctx context.Context, opts binary.InstallOptions) (*binary.InstallResult, error) {
	if !s.enabled {
		return s.installer.Install(ctx, opts)
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" Installing %s...", opts.Tool)
	// Ignore color errors - continue without colored spinner if it fails.
	_ = sp.Color("cyan")
	sp.Start()

	res, err := s.installer.Install(ctx, opts)
	if err != nil {
		sp.FinalMSG = color.RedString("✗") + fmt.Sprintf(" Failed to install %s\n", opts.Tool)
	} else {
		sp.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" Installed %s %s\n", res.Tool, res.Version)
	}
	sp.Stop()
	return res, err
}

// spinnerEnabled reports whether the spinner may draw: only on an
// interactive terminal outside of Actions and without debug output.
func spinnerEnabled(runtime *actions.Runtime, debug bool) bool {
	return !runtime.IsActions() && !debug && !color.NoColor
}

func newInstallCmd(e *env) *cobra.Command {
	opts := &installOptions{enabled: true}
	var backend string
	var debug bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install ejson or ejsonkms and add it to PATH",
		Long: `Download a release of ejson or ejsonkms for this platform, verify its
SHA-256 digest against the release metadata (and its GPG signature when a
keyring is given), and add the install directory to PATH for later steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setFlagsFromEnv(cmd.Flags(), e.lookup); err != nil {
				return err
			}

			runtime := actions.NewRuntime(e.stdout)
			debug = debugEnabled(debug, e.getenv)
			logger := logging.New(logging.Options{Out: e.stdout, Actions: runtime.IsActions(), Debug: debug})

			manager, err := newManager(opts, runtime, logger, e.getenv)
			if err != nil {
				return err
			}
			installer := &spinnerInstaller{installer: manager, enabled: spinnerEnabled(runtime, debug)}

			tool := binary.Tool(backend)
			res, err := installer.Install(cmd.Context(), binary.InstallOptions{Tool: tool, Version: opts.version})
			if err != nil {
				logger.Error(fmt.Sprintf("[ERROR] Failure on %s install: %v", tool, err))
				return fmt.Errorf("%w: %v", errReported, err)
			}

			if err := runtime.SetOutput("path", res.Path); err != nil {
				return err
			}
			if err := runtime.SetOutput("version", res.Version); err != nil {
				return err
			}
			if res.Cached {
				logger.Info(fmt.Sprintf("%s %s already installed", res.Tool, res.Version), "path", res.Path)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&backend, "backend", string(binary.ToolEjson), "Tool to install: ejson or ejsonkms")
	opts.addFlags(fs)
	fs.BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}
