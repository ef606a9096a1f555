// Package binary installs the ejson and ejsonkms command-line tools from
// their GitHub releases.
//
// # Security Model
//
// A release archive is never extracted unless it was verified:
//   - The expected SHA-256 digest is read from the release metadata API
//     before the archive is downloaded
//   - The downloaded archive must match it exactly, or it is removed
//   - When a keyring is configured, a detached GPG signature published next
//     to the archive must verify as well
//
// # Flow
//
//	mgr, err := binary.NewManager(binary.Config{InstallDir: dir})
//	if err != nil {
//	    return err
//	}
//
//	res, err := mgr.Install(ctx, binary.InstallOptions{
//	    Tool:    binary.ToolEjson,
//	    Version: binary.DefaultVersions[binary.ToolEjson],
//	})
//
// # Architecture
//
// The package is organized into several components:
//   - Manager: High-level orchestration of lock, fetch, verify, install
//   - ReleaseClient: Release metadata lookup for the expected digest
//   - Downloader: HTTP download with retry logic and caching
//   - Verifier: SHA256 and GPG verification
//   - Extractor: Archive extraction (tar.gz)
//   - Platform: Architecture resolution and URL construction
package binary
