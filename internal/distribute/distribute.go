// Package distribute hands decrypted content to later workflow steps: an
// output file, step outputs and environment variables.
//
// Planning is separate from applying. PlanOutputs and PlanEnvVars decide
// which pairs are used under which names and report the rest as skipped;
// the Distributor applies a plan through a Sink, which in production is the
// Actions runtime.
package distribute

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/payload"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/validate"
)

// Sink receives outputs, variables and secrets.
type Sink interface {
	SetOutput(name, value string) error
	ExportVariable(name, value string) error
	SetSecret(value string)
}

// Skip reason values.
const (
	ReasonReserved    = "reserved variable name"
	ReasonInvalidName = "invalid variable name"
	ReasonNotScalar   = "value is not a string, number or boolean"
)

// Skip records a pair that was not distributed.
type Skip struct {
	Key    string // Key in the environment mapping
	Name   string // Final name with prefix, empty for non-scalar values
	Reason string
}

// Result lists what a plan distributes. Applied pairs carry the final
// name, prefix included.
type Result struct {
	Applied []payload.Pair
	Skipped []Skip
}

// PlanOutputs maps every scalar pair of p to an output named prefix+key.
func PlanOutputs(p *payload.Payload, prefix string) *Result {
	res := &Result{}
	for _, pair := range p.Environment {
		res.Applied = append(res.Applied, payload.Pair{Key: prefix + pair.Key, Value: pair.Value})
	}
	res.Skipped = append(res.Skipped, nonScalar(p)...)
	return res
}

// PlanEnvVars maps every scalar pair of p to a variable named prefix+key,
// skipping reserved and invalid names.
func PlanEnvVars(p *payload.Payload, prefix string) *Result {
	res := &Result{}
	for _, pair := range p.Environment {
		name := prefix + pair.Key
		switch {
		case !ValidEnvName(name):
			res.Skipped = append(res.Skipped, Skip{Key: pair.Key, Name: name, Reason: ReasonInvalidName})
		case IsReserved(name):
			res.Skipped = append(res.Skipped, Skip{Key: pair.Key, Name: name, Reason: ReasonReserved})
		default:
			res.Applied = append(res.Applied, payload.Pair{Key: name, Value: pair.Value})
		}
	}
	res.Skipped = append(res.Skipped, nonScalar(p)...)
	return res
}

func nonScalar(p *payload.Payload) []Skip {
	var skipped []Skip
	for _, key := range p.Skipped {
		skipped = append(skipped, Skip{Key: key, Reason: ReasonNotScalar})
	}
	return skipped
}

// Distributor applies plans to a Sink.
type Distributor struct {
	sink   Sink
	logger logging.Logger
	root   string
}

// New creates a Distributor. root is the workspace root the out-file must
// stay inside.
func New(sink Sink, logger logging.Logger, root string) *Distributor {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Distributor{sink: sink, logger: logger, root: root}
}

// WriteOutFile writes content verbatim to path with owner-only permissions.
func (d *Distributor) WriteOutFile(path, content string) error {
	if err := validate.PathWithinWorkspace(path, d.root, "out-file"); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for out-file: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write out-file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("set out-file permissions: %w", err)
	}

	d.logger.Info("Decrypted content written", "path", path)
	return nil
}

// PopulateOutputs sets one masked step output per environment entry.
func (d *Distributor) PopulateOutputs(p *payload.Payload, prefix string) (*Result, error) {
	res := PlanOutputs(p, prefix)
	d.warnSkipped(res, "output")

	for _, pair := range res.Applied {
		d.sink.SetSecret(pair.Value)
		if err := d.sink.SetOutput(pair.Key, pair.Value); err != nil {
			return res, fmt.Errorf("set output %s: %w", pair.Key, err)
		}
	}
	d.logger.Info(fmt.Sprintf("Populated %d outputs", len(res.Applied)))
	return res, nil
}

// PopulateEnvVars exports one masked environment variable per allowed
// environment entry.
func (d *Distributor) PopulateEnvVars(p *payload.Payload, prefix string) (*Result, error) {
	res := PlanEnvVars(p, prefix)
	d.warnSkipped(res, "environment variable")

	for _, pair := range res.Applied {
		d.sink.SetSecret(pair.Value)
		if err := d.sink.ExportVariable(pair.Key, pair.Value); err != nil {
			return res, fmt.Errorf("export %s: %w", pair.Key, err)
		}
	}
	d.logger.Info(fmt.Sprintf("Populated %d environment variables", len(res.Applied)))
	return res, nil
}

func (d *Distributor) warnSkipped(res *Result, kind string) {
	for _, s := range res.Skipped {
		if s.Name != "" {
			d.logger.Warn(fmt.Sprintf("Skipping %s %s: %s", kind, s.Name, s.Reason), "key", s.Key)
			continue
		}
		d.logger.Warn(fmt.Sprintf("Skipping key %s: %s", s.Key, s.Reason))
	}
}
