package binary

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/platform"
)

// DefaultDownloadBaseURL is where release archives are served from.
const DefaultDownloadBaseURL = "https://github.com"

// ResolveArchitecture detects the host platform and checks that release
// archives exist for it. It fails before any network access.
func ResolveArchitecture(ctx context.Context, detector platform.Detector) (*platform.Info, error) {
	if detector == nil {
		detector = platform.NewDetector()
	}

	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("platform info is required")
	}

	if !info.Supported() {
		raw := info.ArchRaw
		if raw == "" {
			raw = "unknown"
		}
		return nil, fmt.Errorf("%w: %s (supported: amd64, arm64)", ErrUnsupportedArchitecture, raw)
	}
	if !info.IsLinux() && !info.IsMacOS() {
		return nil, fmt.Errorf("%w: %s (supported: linux, darwin)", ErrUnsupportedOS, info.OS)
	}
	return info, nil
}

// constructDownloadInfo builds download URLs based on platform and tool.
// Pattern: {base}/{repo}/releases/download/v{version}/{tool}_{version}_{os}_{arch}.tar.gz
func constructDownloadInfo(baseURL string, tool Tool, version string, platformInfo *platform.Info) (*DownloadInfo, error) {
	if platformInfo == nil {
		return nil, fmt.Errorf("platform info is required")
	}
	if version == "" {
		return nil, fmt.Errorf("version is required")
	}

	repo, err := tool.Repository()
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultDownloadBaseURL
	}

	info := &DownloadInfo{
		Tool:       tool,
		Version:    version,
		OS:         platformInfo.OS,
		Arch:       platformInfo.Arch,
		Repository: repo,
		Tag:        "v" + version,
		AssetName:  fmt.Sprintf("%s_%s_%s_%s.tar.gz", tool, version, platformInfo.OS, platformInfo.Arch),
	}

	info.URL = fmt.Sprintf("%s/%s/releases/download/%s/%s", baseURL, repo, info.Tag, info.AssetName)
	info.SignatureURL = info.URL + ".sig"

	return info, nil
}
