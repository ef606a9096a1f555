package distribute

import (
	"regexp"
	"strings"
)

// reserved lists variables that control the shell, the runner or the
// credentials of later steps. A decrypted key may not overwrite them.
var reserved = map[string]bool{
	"PATH":                           true,
	"HOME":                           true,
	"SHELL":                          true,
	"USER":                           true,
	"PWD":                            true,
	"TMPDIR":                         true,
	"BASH_ENV":                       true,
	"ENV":                            true,
	"LD_PRELOAD":                     true,
	"LD_LIBRARY_PATH":                true,
	"NODE_OPTIONS":                   true,
	"CI":                             true,
	"GITHUB_TOKEN":                   true,
	"GITHUB_ENV":                     true,
	"GITHUB_PATH":                    true,
	"GITHUB_OUTPUT":                  true,
	"GITHUB_STATE":                   true,
	"GITHUB_STEP_SUMMARY":            true,
	"GITHUB_WORKSPACE":               true,
	"GITHUB_ACTIONS":                 true,
	"GITHUB_API_URL":                 true,
	"RUNNER_TEMP":                    true,
	"RUNNER_TOOL_CACHE":              true,
	"ACTIONS_RUNTIME_TOKEN":          true,
	"ACTIONS_RUNTIME_URL":            true,
	"ACTIONS_CACHE_URL":              true,
	"ACTIONS_ID_TOKEN_REQUEST_TOKEN": true,
	"ACTIONS_ID_TOKEN_REQUEST_URL":   true,
	"AWS_ACCESS_KEY_ID":              true,
	"AWS_SECRET_ACCESS_KEY":          true,
	"AWS_SESSION_TOKEN":              true,
	"AWS_REGION":                     true,
	"AWS_DEFAULT_REGION":             true,
	"EJSON_KEYDIR":                   true,
}

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsReserved reports whether name is a reserved variable, ignoring case.
func IsReserved(name string) bool {
	return reserved[strings.ToUpper(name)]
}

// ValidEnvName reports whether name can be exported as an environment
// variable.
func ValidEnvName(name string) bool {
	return envNamePattern.MatchString(name)
}
