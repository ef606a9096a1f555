package binary

import (
	"errors"
	"fmt"
	"time"
)

// Tool is a command-line tool this package can install.
type Tool string

const (
	// ToolEjson is Shopify's ejson.
	ToolEjson Tool = "ejson"
	// ToolEjsonKMS is envato's ejsonkms.
	ToolEjsonKMS Tool = "ejsonkms"
)

// String returns the string representation of the tool
func (t Tool) String() string {
	return string(t)
}

// Repository returns the GitHub owner/name publishing the tool's releases.
func (t Tool) Repository() (string, error) {
	switch t {
	case ToolEjson:
		return "Shopify/ejson", nil
	case ToolEjsonKMS:
		return "envato/ejsonkms", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, t)
	}
}

// DefaultVersions contains the versions installed when none is requested.
var DefaultVersions = map[Tool]string{
	ToolEjson:    "1.5.2",
	ToolEjsonKMS: "0.2.2",
}

var (
	ErrUnknownTool             = errors.New("unknown tool")
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	ErrUnsupportedOS           = errors.New("unsupported operating system")
	ErrReleaseNotFound         = errors.New("release not found")
	ErrAssetNotFound           = errors.New("release asset not found")
	ErrDigestMissing           = errors.New("release asset has no sha256 digest")
	ErrChecksumMismatch        = errors.New("checksum mismatch")
	ErrSignatureInvalid        = errors.New("signature verification failed")
)

// InstallOptions configures one install.
type InstallOptions struct {
	Tool    Tool
	Version string // Defaults to DefaultVersions[Tool]
}

// Asset is a release asset as described by the metadata API.
type Asset struct {
	Name        string
	DownloadURL string
	// SHA256 is the expected hex digest, without the "sha256:" prefix.
	SHA256 string
}

// VerificationMethod indicates how a binary was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification (should never happen in production)
	VerificationNone VerificationMethod = iota
	// VerificationGPG indicates GPG signature verification was used
	VerificationGPG
	// VerificationSHA256 indicates SHA256 checksum verification was used
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// InstallResult contains information about a completed install
type InstallResult struct {
	Tool     Tool
	Version  string
	Path     string // Installed executable
	BinDir   string // Directory added to PATH
	Verified []VerificationMethod
	// Cached is true when a previous install was reused and nothing was
	// downloaded.
	Cached   bool
	Duration time.Duration
}

// DownloadInfo contains metadata needed to download a release archive
type DownloadInfo struct {
	Tool         Tool
	Version      string
	OS           string // "linux", "darwin"
	Arch         string // "amd64", "arm64"
	Repository   string // owner/name
	Tag          string // "v" + Version
	AssetName    string
	URL          string // Constructed download URL
	SignatureURL string // Detached GPG signature URL
}

// VerificationResult contains the outcome of a verification attempt
type VerificationResult struct {
	Method  VerificationMethod
	Success bool
	Error   error
}
