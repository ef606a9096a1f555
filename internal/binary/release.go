package binary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultAPIBaseURL is the GitHub REST API used when GITHUB_API_URL is not
// set.
const DefaultAPIBaseURL = "https://api.github.com"

// ReleaseClient reads release metadata from the GitHub REST API.
type ReleaseClient struct {
	baseURL   string
	token     string
	client    *http.Client
	userAgent string
	retry     retryPolicy
}

// NewReleaseClient creates a client for the API at baseURL. token may be
// empty; it only raises the rate limit.
func NewReleaseClient(baseURL, token string, client *http.Client) *ReleaseClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if client == nil {
		client = newHTTPClient()
	}
	return &ReleaseClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		client:    client,
		userAgent: DefaultUserAgent,
		retry:     defaultRetryPolicy(),
	}
}

type releaseResponse struct {
	TagName string          `json:"tag_name"`
	Assets  []assetResponse `json:"assets"`
}

type assetResponse struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Digest             string `json:"digest"`
}

// FetchExpectedChecksum looks up the asset named filename in the release
// tagged v<version> of repo and returns it with its expected digest.
func (c *ReleaseClient) FetchExpectedChecksum(ctx context.Context, repo, version, filename string) (*Asset, error) {
	tag := "v" + version
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.baseURL, repo, tag)

	var release releaseResponse
	err := c.retry.do(ctx, func() error {
		return c.getJSON(ctx, url, &release)
	})
	if err != nil {
		return nil, err
	}

	if release.TagName != "" && release.TagName != tag {
		return nil, fmt.Errorf("%w: %s@%s", ErrReleaseNotFound, repo, tag)
	}

	for _, a := range release.Assets {
		if a.Name != filename {
			continue
		}

		algo, digest, ok := strings.Cut(a.Digest, ":")
		if !ok || !strings.EqualFold(algo, "sha256") || len(digest) != 64 {
			return nil, fmt.Errorf("%w: %s", ErrDigestMissing, filename)
		}
		return &Asset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			SHA256:      strings.ToLower(digest),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s in %s@%s", ErrAssetNotFound, filename, repo, tag)
}

func (c *ReleaseClient) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return permanent(fmt.Errorf("%w: %s", ErrReleaseNotFound, url))
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(v); err != nil {
		return permanent(fmt.Errorf("decode release metadata: %w", err))
	}
	return nil
}
