package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/gitdeps/pkg/httputil"
	"github.com/matzehuels/gitdeps/pkg/integrations"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// ErrNoFilename is returned when a tarball response does not name its file.
var ErrNoFilename = errors.New("response has no content-disposition filename")

var filenamePattern = regexp.MustCompile(`filename=([^;]+)`)

// Options configures a [Client].
type Options struct {
	BaseURL    string          // API root, DefaultBaseURL when empty
	UserAgent  string          // Identifying client header sent with every request
	HTTPClient *http.Client    // nil uses integrations.NewHTTPClient
	Retry      httputil.Policy // Zero value: no retries
}

// Client provides access to the GitHub API for ref listing and tarball
// downloads. Requests are unauthenticated.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}
	return &Client{
		Client:  integrations.NewClient(opts.HTTPClient, headers, opts.Retry),
		baseURL: base,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Refs lists every ref of owner/repo ("refs/heads/main", "refs/tags/v1.0.0").
// All pages are fetched. An empty repository yields an empty list.
func (c *Client) Refs(ctx context.Context, owner, repo string) ([]string, error) {
	next := fmt.Sprintf("%s/repos/%s/%s/git/refs?per_page=100", c.baseURL, owner, repo)

	var refs []string
	for next != "" {
		var page []refResponse
		var err error
		next, err = c.GetPage(ctx, next, &page)
		if errors.Is(err, integrations.ErrConflict) {
			return refs, nil
		}
		if err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return nil, fmt.Errorf("github repo %s/%s: %w", owner, repo, err)
			}
			return nil, err
		}
		for _, r := range page {
			refs = append(refs, r.Ref)
		}
	}
	return refs, nil
}

// Tarball downloads the tarball of owner/repo at treeish into dir and returns
// the file path. The API answers with a redirect to the asset; the file name
// comes from the asset's Content-Disposition header.
func (c *Client) Tarball(ctx context.Context, owner, repo, treeish, dir string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/tarball/%s", c.baseURL, owner, repo, escapeRef(treeish))

	location, err := c.Redirect(ctx, endpoint)
	if err != nil {
		return "", err
	}

	resp, err := c.Open(ctx, location)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := Filename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		return "", fmt.Errorf("GET %s: %w", location, ErrNoFilename)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("download %s: %w", location, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Filename extracts a safe base file name from a Content-Disposition header.
// Returns "" when the header names no usable file.
func Filename(disposition string) string {
	var name string
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = params["filename"]
	} else if m := filenamePattern.FindStringSubmatch(disposition); m != nil {
		name = strings.Trim(strings.TrimSpace(m[1]), `"`)
	}
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

// escapeRef path-escapes each segment of a ref, keeping the slashes of
// branch names such as "feature/login".
func escapeRef(ref string) string {
	segs := strings.Split(ref, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

type refResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}
