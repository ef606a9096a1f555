package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using the running host.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reports the host OS and CPU architecture.
//
// The architecture comes from gopsutil's kernel arch (uname -m). If that
// lookup fails the Go build target is used instead. An unrecognized
// architecture is not an error here: Arch is left empty and the caller
// decides whether that is fatal.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", err)
	}

	// gopsutil has no context-aware variant of KernelArch.
	kernelArch, err := host.KernelArch()
	if err == nil && kernelArch != "" {
		info.ArchRaw = kernelArch
	}

	info.Arch = NormalizeArch(info.ArchRaw)
	return info, nil
}
