// Package github lists repository releases through the GitHub REST API.
//
// Responses are validated once at the boundary against a JSON schema and
// decoded into typed Release records, so later pipeline stages never deal
// with missing fields.
package github

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

const (
	// DefaultAPIBase is the public GitHub API endpoint
	DefaultAPIBase = "https://api.github.com"
	// EnvAPIBase overrides the API endpoint
	EnvAPIBase = "GRIP_GITHUB_API"
	// DefaultTimeout is the per-request timeout
	DefaultTimeout = 30 * time.Second

	perPage  = 100
	maxPages = 10
)

//go:embed releases.schema.json
var releasesSchema []byte

// Release is one published release of a repository.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size,omitempty"`
}

// AssetNames returns the asset names in release order.
func (r *Release) AssetNames() []string {
	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}
	return names
}

// TokenFromEnv returns the API token, preferring GRIP_GITHUB_TOKEN.
func TokenFromEnv() string {
	if tok := strings.TrimSpace(os.Getenv("GRIP_GITHUB_TOKEN")); tok != "" {
		return tok
	}
	return strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
}

// Client talks to the releases endpoint.
type Client struct {
	baseURL   string
	userAgent string
	token     string
	http      *http.Client
	schema    *jsonschema.Schema
}

// NewClient creates a client. An empty baseURL uses GRIP_GITHUB_API or the
// public API.
func NewClient(baseURL, userAgent string) (*Client, error) {
	if baseURL == "" {
		baseURL = os.Getenv(EnvAPIBase)
	}
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile releases schema: %w", err)
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		token:     TokenFromEnv(),
		http:      &http.Client{Timeout: DefaultTimeout},
		schema:    schema,
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(releasesSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("releases.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("releases.schema.json")
}

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9._-]+$`)

// ValidateRepository checks an owner/project identifier.
func ValidateRepository(repo string) error {
	if !repoPattern.MatchString(repo) {
		return fmt.Errorf("%w: repository %q is not in owner/project form", errs.ErrInvalidRemoteMetadata, repo)
	}
	return nil
}

// GetReleases returns every release of repo in API order (newest first).
// The list is never re-sorted.
func (c *Client) GetReleases(ctx context.Context, repo string) ([]Release, error) {
	if err := ValidateRepository(repo); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d", c.baseURL, repo, perPage)
	var releases []Release

	for page := 0; url != "" && page < maxPages; page++ {
		body, next, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}

		batch, err := c.decode(body)
		if err != nil {
			return nil, fmt.Errorf("releases for %s: %w", repo, err)
		}
		releases = append(releases, batch...)
		url = next
	}

	log.Debug("fetched releases", "repository", repo, "count", len(releases))

	if len(releases) == 0 {
		return nil, fmt.Errorf("%w for %s", errs.ErrNoReleases, repo)
	}
	return releases, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errs.Network("GET", url, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", errs.Network("GET", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, "", errs.Network("GET", url, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errs.Network("GET", url, fmt.Errorf("read body: %w", err))
	}
	return body, nextLink(resp.Header.Get("Link")), nil
}

func (c *Client) decode(body []byte) ([]Release, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}
	if err := c.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	var releases []Release
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}
	return releases, nil
}

// nextLink extracts the rel="next" target from a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}
