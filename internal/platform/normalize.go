package platform

import "strings"

// archAliases maps machine types reported by uname or GOARCH onto the
// canonical names used in release asset file names.
var archAliases = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
	"armv8":   "arm64",
	"armv8l":  "arm64",
}

// NormalizeArch converts a raw machine type into a canonical architecture.
// It returns "" for anything outside the supported set.
func NormalizeArch(raw string) string {
	return archAliases[strings.ToLower(strings.TrimSpace(raw))]
}
