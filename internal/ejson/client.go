// Package ejson invokes the ejson and ejsonkms command-line tools.
//
// The tools do all of the cryptography. This package builds their command
// lines and environment, provisions the private key file the ejson tool
// expects, and turns failures into errors with secrets removed.
package ejson

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/config"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/payload"
)

// EnvAWSRegion is passed to ejsonkms alongside its --aws-region flag.
const EnvAWSRegion = "AWS_REGION"

// Options configures a Client.
type Options struct {
	Backend    config.Backend
	Binary     string // Executable to run, defaults to the backend name
	PrivateKey string // ejson backend, decrypt only
	AWSRegion  string // ejsonkms backend, decrypt only
	KeyDir     string // ejson backend, defaults to DefaultKeyDir
	Debug      bool   // Dump file content before running

	Runner  Runner
	Logger  logging.Logger
	Environ func() []string
}

// Client runs one backend tool.
type Client struct {
	backend    config.Backend
	bin        string
	privateKey string
	region     string
	keyDir     string
	debug      bool
	runner     Runner
	logger     logging.Logger
	environ    func() []string
}

// NewClient creates a client from opts, filling in defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		backend:    opts.Backend,
		bin:        opts.Binary,
		privateKey: opts.PrivateKey,
		region:     opts.AWSRegion,
		keyDir:     opts.KeyDir,
		debug:      opts.Debug,
		runner:     opts.Runner,
		logger:     opts.Logger,
		environ:    opts.Environ,
	}
	if c.backend == "" {
		c.backend = config.BackendEjson
	}
	if c.bin == "" {
		c.bin = string(c.backend)
	}
	if c.keyDir == "" {
		c.keyDir = DefaultKeyDir
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.logger == nil {
		c.logger = logging.Noop()
	}
	if c.environ == nil {
		c.environ = os.Environ
	}
	return c
}

// Tool returns the executable the client runs.
func (c *Client) Tool() string {
	return c.bin
}

// Encrypt encrypts path in place and returns the tool's stdout.
func (c *Client) Encrypt(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, []string{"encrypt", path})
	if err != nil {
		return "", err
	}

	c.logger.Info("Encrypted successfully...")
	if msg := strings.TrimSpace(out); msg != "" {
		c.logger.Info(msg)
	}
	return out, nil
}

// Decrypt returns the decrypted content of path. For the ejson backend the
// private key is written to the key directory first.
func (c *Client) Decrypt(ctx context.Context, path string, format payload.Format) (string, error) {
	args := []string{"decrypt", path}

	switch c.backend {
	case config.BackendEjsonKMS:
		args = append(args, "--aws-region", c.region)
	default:
		if err := c.ConfigurePrivateKey(path, format); err != nil {
			return "", err
		}
	}

	out, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}

	c.logger.Info("Decrypted successfully...")
	return out, nil
}

// ConfigurePrivateKey reads the public key of path and writes the private
// key to <keydir>/<public key>.
func (c *Client) ConfigurePrivateKey(path string, format payload.Format) error {
	if c.privateKey == "" {
		return ErrMissingPrivateKey
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	publicKey, err := payload.PublicKey(string(content), format)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	if publicKey == "" {
		return ErrMissingPublicKey
	}

	keyPath, err := WritePrivateKey(c.keyDir, publicKey, c.privateKey)
	if err != nil {
		return err
	}
	c.logger.Info(fmt.Sprintf("Creating file %s", keyPath))
	return nil
}

// DumpFile logs the raw content of path when debugging is enabled.
func (c *Client) DumpFile(op config.Operation, path string) error {
	if !c.debug {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	c.logger.Warn("EJSON_DEBUG is enabled, file content may contain secrets")
	c.logger.Info(fmt.Sprintf("[%s] File content: %s", op, path))
	c.logger.Info(string(content))
	return nil
}

func (c *Client) run(ctx context.Context, args []string) (string, error) {
	c.logger.Debug("running", "tool", c.bin, "args", strings.Join(args, " "))

	res, err := c.runner.Run(ctx, c.bin, args, c.env())
	if err != nil || res.ExitCode != 0 || strings.TrimSpace(res.Stderr) != "" {
		if res == nil {
			res = &Result{}
		}
		return "", translateCommandError(c.bin, err, res, c.privateKey)
	}
	return res.Stdout, nil
}

// env returns the parent environment plus the variables the backend reads.
func (c *Client) env() []string {
	env := append([]string{}, c.environ()...)
	switch c.backend {
	case config.BackendEjsonKMS:
		if c.region != "" {
			env = append(env, EnvAWSRegion+"="+c.region)
		}
	default:
		env = append(env, EnvKeyDir+"="+c.keyDir)
	}
	return env
}
