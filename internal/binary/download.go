package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "ejson-action/1.0"
)

// retryPolicy retries transient HTTP failures with exponential backoff.
// Errors wrapped with permanent are returned immediately.
type retryPolicy struct {
	retries         uint64
	initialInterval time.Duration
	notify          func(err error, wait time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{retries: DefaultRetries, initialInterval: time.Second}
}

func (p retryPolicy) do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxElapsedTime = 0

	var attempts uint64
	notify := func(err error, wait time.Duration) {
		attempts++
		if p.notify != nil {
			p.notify(err, wait)
		}
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, p.retries), ctx), notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempts > 0 {
			return fmt.Errorf("failed after %d retries: %w", attempts, err)
		}
		return err
	}
	return nil
}

func permanent(err error) error {
	return backoff.Permanent(err)
}

// checkStatus accepts 200, treats other 4xx responses as permanent and
// everything else as transient.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return permanent(err)
	}
	return err
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Release downloads redirect to object storage
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// Downloader handles HTTP downloads with retry logic
type Downloader struct {
	client    *http.Client
	cacheDir  string
	userAgent string
	retry     retryPolicy
}

// NewDownloader creates a new downloader caching into cacheDir. A nil
// client selects a default one.
func NewDownloader(cacheDir string, client *http.Client) *Downloader {
	if client == nil {
		client = newHTTPClient()
	}
	return &Downloader{
		client:    client,
		cacheDir:  cacheDir,
		userAgent: DefaultUserAgent,
		retry:     defaultRetryPolicy(),
	}
}

// DownloadToFile downloads a URL to a specific file path
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) error {
	if err := d.retry.do(ctx, func() error {
		return d.downloadOnce(ctx, url, destPath)
	}); err != nil {
		return fmt.Errorf("download %s: %w", filepath.Base(destPath), err)
	}
	return nil
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return permanent(fmt.Errorf("create dest dir: %w", err))
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return permanent(fmt.Errorf("create temp file: %w", err))
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return permanent(fmt.Errorf("rename temp file: %w", err))
	}

	cleanupNeeded = false
	return nil
}

// CachePath returns where the archive of info is cached:
// cache/{tool}/{version}/{filename}
func (d *Downloader) CachePath(info *DownloadInfo) string {
	return filepath.Join(d.cacheDir, info.Tool.String(), info.Version, info.AssetName)
}

// DownloadArchive downloads the release archive of info into the cache and
// returns its path. A cached copy is returned as is; callers verify it.
func (d *Downloader) DownloadArchive(ctx context.Context, info *DownloadInfo, url string) (string, error) {
	if info == nil {
		return "", fmt.Errorf("download info is nil")
	}
	if url == "" {
		url = info.URL
	}

	cachePath := d.CachePath(info)
	if fileExists(cachePath) {
		return cachePath, nil
	}

	if err := d.DownloadToFile(ctx, url, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// DownloadSignature downloads the detached GPG signature of info.
func (d *Downloader) DownloadSignature(ctx context.Context, info *DownloadInfo) (string, error) {
	if info == nil || info.SignatureURL == "" {
		return "", fmt.Errorf("no signature URL available")
	}

	path := d.CachePath(info) + ".sig"
	// never served from cache
	if err := d.DownloadToFile(ctx, info.SignatureURL, path); err != nil {
		return "", err
	}
	return path, nil
}

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
