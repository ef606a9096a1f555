// Package platform detects the operating system and CPU architecture of the
// host running the action.
//
// The kernel-reported machine type is preferred over the Go build target so
// that an amd64 binary running under emulation on an arm64 runner still
// resolves to the runner's real architecture. A read-only copy of the result
// is exposed to Lua configuration files as the global "platform" table.
package platform

import "context"

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin"
	Arch    string // "amd64", "arm64" (normalized, empty when unrecognized)
	ArchRaw string // machine type as reported (e.g., "x86_64", "aarch64")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// Supported reports whether the architecture was recognized.
func (i *Info) Supported() bool {
	return i.Arch != ""
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It is used by tests and by callers
// that already know the target platform.
type StaticDetector struct {
	Info *Info
	Err  error
}

// Detect returns the pre-configured info and error.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	return s.Info, s.Err
}
