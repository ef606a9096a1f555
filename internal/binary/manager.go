package binary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/logging"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/platform"
	"github.com/ZebulonRouseFrantzich/ejson-action/internal/transaction"
)

// DefaultLockWait is how long an install waits for another install into the
// same directory to finish.
const DefaultLockWait = 2 * time.Minute

// PathPublisher makes a directory available on PATH, for this process and
// for later steps.
type PathPublisher interface {
	AddPath(dir string) error
}

// Config holds configuration for the binary manager
type Config struct {
	// InstallDir holds bin/, cache/ and the install records
	InstallDir string
	// Detector resolves the host platform, defaults to the real one
	Detector platform.Detector
	// APIBaseURL is the GitHub REST API, defaults to DefaultAPIBaseURL
	APIBaseURL string
	// DownloadBaseURL serves release archives, defaults to DefaultDownloadBaseURL
	DownloadBaseURL string
	// Token is sent to the metadata API when set
	Token string
	// KeyringPath enables GPG verification when set
	KeyringPath string
	// HTTPClient is shared by metadata lookups and downloads
	HTTPClient *http.Client
	// Publisher receives the bin directory, may be nil
	Publisher PathPublisher
	// Logger defaults to a no-op logger
	Logger logging.Logger
	// LockWait defaults to DefaultLockWait
	LockWait time.Duration
}

// Manager orchestrates binary download, verification, and installation
type Manager struct {
	installDir      string
	binDir          string
	cacheDir        string
	txnDir          string
	detector        platform.Detector
	downloadBaseURL string
	lockWait        time.Duration
	publisher       PathPublisher
	logger          logging.Logger
	releases        *ReleaseClient
	downloader      *Downloader
	verifier        *Verifier
	extractor       *Extractor
}

// NewManager creates a new binary manager
func NewManager(config Config) (*Manager, error) {
	if config.InstallDir == "" {
		return nil, fmt.Errorf("InstallDir is required")
	}
	if config.Detector == nil {
		config.Detector = platform.NewDetector()
	}
	if config.Logger == nil {
		config.Logger = logging.Noop()
	}
	if config.LockWait == 0 {
		config.LockWait = DefaultLockWait
	}
	if config.HTTPClient == nil {
		config.HTTPClient = newHTTPClient()
	}

	cacheDir := filepath.Join(config.InstallDir, "cache")
	return &Manager{
		installDir:      config.InstallDir,
		binDir:          filepath.Join(config.InstallDir, "bin"),
		cacheDir:        cacheDir,
		txnDir:          filepath.Join(config.InstallDir, ".txn"),
		detector:        config.Detector,
		downloadBaseURL: config.DownloadBaseURL,
		lockWait:        config.LockWait,
		publisher:       config.Publisher,
		logger:          config.Logger,
		releases:        NewReleaseClient(config.APIBaseURL, config.Token, config.HTTPClient),
		downloader:      NewDownloader(cacheDir, config.HTTPClient),
		verifier:        NewVerifier(config.KeyringPath),
		extractor:       NewExtractor(),
	}, nil
}

// BinaryPath returns the filesystem path of an installed tool
func (m *Manager) BinaryPath(tool Tool) string {
	return filepath.Join(m.binDir, tool.String())
}

// BinDir returns the directory installed tools are placed in.
func (m *Manager) BinDir() string {
	return m.binDir
}

// IsInstalled reports whether version of tool was installed by a completed
// install and is still executable.
func (m *Manager) IsInstalled(tool Tool, version string) (bool, error) {
	txn, err := transaction.Load(m.txnDir, tool.String())
	if errors.Is(err, transaction.ErrNoRecord) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return txn.Completed(version) && txn.BinaryPath == m.BinaryPath(tool), nil
}

// Install makes the requested tool version available on PATH. It resolves
// the platform first, reuses a completed install of the same version, and
// otherwise downloads, verifies and extracts the release archive under the
// install lock.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	start := time.Now()

	if opts.Version == "" {
		v, ok := DefaultVersions[opts.Tool]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, opts.Tool)
		}
		opts.Version = v
	}

	platformInfo, err := ResolveArchitecture(ctx, m.detector)
	if err != nil {
		return nil, err
	}

	info, err := constructDownloadInfo(m.downloadBaseURL, opts.Tool, opts.Version, platformInfo)
	if err != nil {
		return nil, fmt.Errorf("construct download info: %w", err)
	}

	lock, err := transaction.AcquireLock(ctx, m.installDir, m.lockWait)
	if err != nil {
		return nil, fmt.Errorf("acquire install lock: %w", err)
	}
	defer lock.Release()

	result := &InstallResult{
		Tool:    opts.Tool,
		Version: opts.Version,
		Path:    m.BinaryPath(opts.Tool),
		BinDir:  m.binDir,
	}

	installed, err := m.IsInstalled(opts.Tool, opts.Version)
	if err != nil {
		m.logger.Warn("ignoring unreadable install record", "tool", opts.Tool, "error", err)
	}
	if installed {
		m.logger.Debug("tool already installed", "tool", opts.Tool, "version", opts.Version)
		result.Cached = true
	} else {
		if fileExists(result.Path) {
			m.logger.Warn("existing binary is not a verified install of this version, reinstalling", "path", result.Path)
		}
		if result.Verified, err = m.install(ctx, info); err != nil {
			return nil, err
		}
	}

	if m.publisher != nil {
		if err := m.publisher.AddPath(m.binDir); err != nil {
			return nil, fmt.Errorf("add %s to PATH: %w", m.binDir, err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// install runs one tracked install of info.
func (m *Manager) install(ctx context.Context, info *DownloadInfo) ([]VerificationMethod, error) {
	txn := transaction.New(info.Tool.String(), info.Version, info.AssetName)
	txn.SetState(transaction.StateInProgress, nil)
	if err := txn.Save(m.txnDir); err != nil {
		return nil, fmt.Errorf("record install: %w", err)
	}

	verified, err := m.fetchAndExtract(ctx, info, txn)
	if err != nil {
		txn.SetState(transaction.StateFailed, err)
		if saveErr := txn.Save(m.txnDir); saveErr != nil {
			m.logger.Warn("failed to record install failure", "error", saveErr)
		}
		return nil, err
	}

	for _, v := range verified {
		txn.Verified = append(txn.Verified, v.String())
	}
	txn.SetState(transaction.StateCompleted, nil)
	if err := txn.Save(m.txnDir); err != nil {
		return nil, fmt.Errorf("record install: %w", err)
	}
	return verified, nil
}

func (m *Manager) fetchAndExtract(ctx context.Context, info *DownloadInfo, txn *transaction.InstallTxn) ([]VerificationMethod, error) {
	// The expected digest is known before anything is downloaded.
	asset, err := m.releases.FetchExpectedChecksum(ctx, info.Repository, info.Version, info.AssetName)
	if err != nil {
		return nil, fmt.Errorf("fetch release metadata: %w", err)
	}
	txn.Digest = asset.SHA256

	url := asset.DownloadURL
	if url == "" {
		url = info.URL
	}

	archive, err := m.downloadVerified(ctx, info, url, asset.SHA256)
	if err != nil {
		return nil, err
	}
	verified := []VerificationMethod{VerificationSHA256}

	if m.verifier.GPGEnabled() {
		sig, err := m.downloader.DownloadSignature(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("download signature: %w", err)
		}
		if _, err := m.verifier.VerifyGPG(archive, sig); err != nil {
			return nil, err
		}
		verified = append(verified, VerificationGPG)
	}

	if err := m.extractor.ExtractBinary(archive, m.BinaryPath(info.Tool), info.Tool.String()); err != nil {
		return nil, fmt.Errorf("extract binary: %w", err)
	}
	txn.BinaryPath = m.BinaryPath(info.Tool)
	if txn.BinarySHA256, err = transaction.FileSHA256(txn.BinaryPath); err != nil {
		return nil, fmt.Errorf("hash installed binary: %w", err)
	}

	m.logger.Info(fmt.Sprintf("Installed %s %s", info.Tool, info.Version), "path", m.BinaryPath(info.Tool))
	return verified, nil
}

// downloadVerified returns a cached or freshly downloaded archive whose
// digest matches expected. A cached archive that no longer matches is
// removed and downloaded again once; a fresh download that does not match
// is removed and fails.
func (m *Manager) downloadVerified(ctx context.Context, info *DownloadInfo, url, expected string) (string, error) {
	cachePath := m.downloader.CachePath(info)
	if fileExists(cachePath) {
		if _, err := m.verifier.VerifySHA256(cachePath, expected); err == nil {
			m.logger.Debug("using cached archive", "path", cachePath)
			return cachePath, nil
		}
		m.logger.Warn("cached archive failed verification, downloading again", "path", cachePath)
		os.Remove(cachePath)
	}

	archive, err := m.downloader.DownloadArchive(ctx, info, url)
	if err != nil {
		return "", err
	}
	if _, err := m.verifier.VerifySHA256(archive, expected); err != nil {
		return "", err
	}
	return archive, nil
}
