package config

// Input names, shared by flags, INPUT_* variables and the Lua file.
const (
	InputAction          = "action"
	InputFilePath        = "file-path"
	InputBackend         = "backend"
	InputPrivateKey      = "private-key"
	InputAWSRegion       = "aws-region"
	InputOutFile         = "out-file"
	InputPopulateEnvVars = "populate-env-vars"
	InputPopulateOutputs = "populate-outputs"
	InputPrefixEnvVars   = "prefix-env-vars"
	InputPrefixOutputs   = "prefix-outputs"
	InputInstall         = "install"
	InputVersion         = "version"
	InputInstallDir      = "install-dir"
	InputKeyring         = "keyring"
	InputGitHubToken     = "github-token"
)

// luaGlobal is the global table a Lua configuration file must define.
const luaGlobal = "ejson"

// MaxConfigSize bounds the size of a Lua configuration file.
const MaxConfigSize = 1 << 20

// OutputDecrypted is the step output that receives the decrypted content.
const OutputDecrypted = "decrypted"

// knownInputs lists every input a Lua file may set.
var knownInputs = map[string]bool{
	InputAction:          true,
	InputFilePath:        true,
	InputBackend:         true,
	InputPrivateKey:      true,
	InputAWSRegion:       true,
	InputOutFile:         true,
	InputPopulateEnvVars: true,
	InputPopulateOutputs: true,
	InputPrefixEnvVars:   true,
	InputPrefixOutputs:   true,
	InputInstall:         true,
	InputVersion:         true,
	InputInstallDir:      true,
	InputKeyring:         true,
	InputGitHubToken:     true,
}
