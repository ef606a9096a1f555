package config

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
)

// Operation selects the subcommand passed to the external tool.
type Operation string

const (
	// OperationEncrypt encrypts the file in place.
	OperationEncrypt Operation = "encrypt"
	// OperationDecrypt decrypts the file to stdout.
	OperationDecrypt Operation = "decrypt"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o == OperationEncrypt || o == OperationDecrypt
}

// Backend selects the external tool and how it obtains key material.
type Backend string

const (
	// BackendEjson uses the ejson binary with a private key written to the
	// local key directory.
	BackendEjson Backend = "ejson"
	// BackendEjsonKMS uses the ejsonkms binary, which unwraps the private key
	// with AWS KMS in the given region.
	BackendEjsonKMS Backend = "ejsonkms"
)

// String returns the string representation of the backend.
func (b Backend) String() string {
	return string(b)
}

// Inputs holds every input of a run after all sources are merged.
type Inputs struct {
	Action          Operation
	FilePath        string
	Backend         Backend
	PrivateKey      string
	AWSRegion       string
	OutFile         string
	PopulateEnvVars bool
	PopulateOutputs bool
	PrefixEnvVars   string
	PrefixOutputs   string

	Install     bool
	Version     string
	InstallDir  string
	Keyring     string
	GitHubToken string
}

// ResolvedBackend returns the explicit backend, or derives it from the key
// material supplied: a region means ejsonkms, anything else means ejson.
func (in *Inputs) ResolvedBackend() Backend {
	if in.Backend != "" {
		return in.Backend
	}
	if in.AWSRegion != "" {
		return BackendEjsonKMS
	}
	return BackendEjson
}

// PopulationRequested reports whether the decrypted environment mapping is
// fanned out to outputs or environment variables.
func (in *Inputs) PopulationRequested() bool {
	return in.PopulateEnvVars || in.PopulateOutputs
}

var (
	envPrefixPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	outputPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Validate checks the inputs and returns every problem found.
func (in *Inputs) Validate() error {
	var result *multierror.Error

	if in.Action == "" {
		result = multierror.Append(result, &ValidationError{Field: InputAction, Message: "is required"})
	} else if !in.Action.Valid() {
		result = multierror.Append(result, &ValidationError{
			Field:   InputAction,
			Message: fmt.Sprintf("Invalid action '%s' (expected encrypt or decrypt)", in.Action),
		})
	}

	if in.FilePath == "" {
		result = multierror.Append(result, &ValidationError{Field: InputFilePath, Message: "is required"})
	}

	backend := in.ResolvedBackend()
	switch backend {
	case BackendEjson, BackendEjsonKMS:
	default:
		result = multierror.Append(result, &ValidationError{
			Field:   InputBackend,
			Message: fmt.Sprintf("unknown backend %q (expected ejson or ejsonkms)", in.Backend),
		})
	}

	if in.PrivateKey != "" && in.AWSRegion != "" {
		result = multierror.Append(result, &ValidationError{
			Field:   InputPrivateKey,
			Message: "private-key and aws-region are mutually exclusive",
		})
	}
	if backend == BackendEjson && in.AWSRegion != "" && in.PrivateKey == "" {
		result = multierror.Append(result, &ValidationError{
			Field:   InputAWSRegion,
			Message: "aws-region is only used by the ejsonkms backend",
		})
	}
	if backend == BackendEjsonKMS && in.PrivateKey != "" && in.AWSRegion == "" {
		result = multierror.Append(result, &ValidationError{
			Field:   InputPrivateKey,
			Message: "private-key is only used by the ejson backend",
		})
	}

	if in.Action == OperationDecrypt {
		switch {
		case backend == BackendEjson && in.PrivateKey == "":
			result = multierror.Append(result, &ValidationError{
				Field:   InputPrivateKey,
				Message: "No provided private key for decryption",
			})
		case backend == BackendEjsonKMS && in.AWSRegion == "":
			result = multierror.Append(result, &ValidationError{
				Field:   InputAWSRegion,
				Message: "is required to decrypt with ejsonkms",
			})
		}
	}

	if in.Action == OperationEncrypt {
		if in.OutFile != "" {
			result = multierror.Append(result, &ValidationError{Field: InputOutFile, Message: "is only supported for decrypt"})
		}
		if in.PopulationRequested() {
			result = multierror.Append(result, &ValidationError{
				Field:   InputPopulateEnvVars,
				Message: "populate-env-vars and populate-outputs are only supported for decrypt",
			})
		}
	}

	if in.PrefixEnvVars != "" && !envPrefixPattern.MatchString(in.PrefixEnvVars) {
		result = multierror.Append(result, &ValidationError{
			Field:   InputPrefixEnvVars,
			Message: fmt.Sprintf("%q is not a valid environment variable prefix", in.PrefixEnvVars),
		})
	}
	if in.PrefixOutputs != "" && !outputPrefixPattern.MatchString(in.PrefixOutputs) {
		result = multierror.Append(result, &ValidationError{
			Field:   InputPrefixOutputs,
			Message: fmt.Sprintf("%q is not a valid output prefix", in.PrefixOutputs),
		})
	}

	return result.ErrorOrNil()
}

// ValidationError represents an invalid or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "invalid input " + e.Field + ": " + e.Message
	}
	return "invalid input: " + e.Message
}
