package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the GitHub REST API root
	DefaultAPIURL = "https://api.github.com"
	// DefaultRawURL serves raw file contents without API quota
	DefaultRawURL = "https://raw.githubusercontent.com"
	// DefaultTimeout bounds a single HTTP exchange
	DefaultTimeout = 30 * time.Second

	// TypeBlob marks a file entry in a tree listing
	TypeBlob = "blob"
	// TypeTree marks a directory entry in a tree listing
	TypeTree = "tree"
)

// ErrTreeRequestFailed is returned when the tree listing cannot be retrieved
var ErrTreeRequestFailed = errors.New("tree request failed")

// TreeEntry is one node of a recursive tree listing
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// Config holds client settings
type Config struct {
	APIURL  string
	RawURL  string
	Token   string // Optional; raises the API quota for tree listings
	Timeout time.Duration
	Retry   RetryConfig
}

// Client talks to the repository host
type Client struct {
	apiURL     string
	rawURL     string
	token      string
	retry      RetryConfig
	httpClient *http.Client
}

// NewClient creates a client, filling unset fields with defaults
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		rawURL: strings.TrimRight(cfg.RawURL, "/"),
		token:  cfg.Token,
		retry:  cfg.Retry,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Tree retrieves the full recursive file tree of owner/repo at branch
func (c *Client) Tree(ctx context.Context, owner, repo, branch string) ([]TreeEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.apiURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	entries, err := retryWithBackoff(ctx, c.retry, func() ([]TreeEntry, error) {
		return c.fetchTree(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s@%s: %v", ErrTreeRequestFailed, owner, repo, branch, err)
	}
	return entries, nil
}

func (c *Client) fetchTree(ctx context.Context, endpoint string) ([]TreeEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "mdkb-mcp")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if retryable(resp.StatusCode) {
			return nil, apiErr
		}
		return nil, permanent(apiErr)
	}

	var apiResp struct {
		SHA       string      `json:"sha"`
		Tree      []TreeEntry `json:"tree"`
		Truncated bool        `json:"truncated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, permanent(fmt.Errorf("decode response: %w", err))
	}
	if apiResp.Tree == nil {
		return nil, permanent(errors.New("decode response: missing tree"))
	}
	if apiResp.Truncated {
		log.Printf("Warning: tree listing truncated at %d entries, some documents will be missing: %s",
			len(apiResp.Tree), endpoint)
	}

	return apiResp.Tree, nil
}

// Raw retrieves the raw bytes of path. The HTTP status is returned alongside
// the body so callers can classify failures.
func (c *Client) Raw(ctx context.Context, owner, repo, branch, path string) (string, int, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL,
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch), escapePath(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "mdkb-mcp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("raw call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("raw error %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(body), resp.StatusCode, nil
}

// retryable reports whether a status is worth another attempt
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// escapePath escapes each segment of a slash separated path
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
