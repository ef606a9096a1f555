// Package config defines the inputs of an ejson-action run and loads them
// from an optional Lua configuration file.
//
// # Sources
//
// Inputs are resolved with the following precedence:
//   - command-line flags
//   - INPUT_* environment variables set by the Actions runner
//   - a Lua configuration file (--config)
//   - built-in defaults
//
// The first two are handled by the command layer; this package parses the
// Lua file and validates the merged result.
//
// # Lua configuration
//
// The file must assign a global table named "ejson" whose fields mirror the
// action inputs, with underscores in place of hyphens:
//
//	ejson = {
//	  action = "decrypt",
//	  file_path = "config/secrets.ejson",
//	  populate_env_vars = true,
//	  prefix_env_vars = platform.when(platform.is_arm64, "ARM_"),
//	}
//
// The code runs in a sandboxed gopher-lua VM: only the base, string, table
// and math libraries are loaded and code loading functions are removed. The
// read-only "platform" table from the platform package is available.
//
// # Validation
//
// Inputs.Validate reports every problem at once, aggregated with
// hashicorp/go-multierror, so a misconfigured workflow can be fixed in a
// single edit.
package config
