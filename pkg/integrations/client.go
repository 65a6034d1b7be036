package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/gitdeps/pkg/httputil"
	"github.com/matzehuels/gitdeps/pkg/observability"
)

// Client provides shared HTTP functionality for hosting API clients.
// It handles retry logic, common request headers and status mapping.
type Client struct {
	http     *http.Client
	noFollow *http.Client
	download *http.Client
	headers  map[string]string
	retry    httputil.Policy
}

// NewClient creates a Client around httpClient (nil uses [NewHTTPClient]).
// Headers are applied to all requests made through this client. The zero
// retry policy performs every request exactly once.
func NewClient(httpClient *http.Client, headers map[string]string, retry httputil.Policy) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	noFollow := *httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{
		http:     httpClient,
		noFollow: &noFollow,
		download: downloadClient(httpClient),
		headers:  headers,
		retry:    retry,
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	_, err := c.GetPage(ctx, url, v)
	return err
}

// GetPage is like Get but also returns the URL of the next page advertised
// in the response's Link header, or "" on the last page.
func (c *Client) GetPage(ctx context.Context, url string, v any) (next string, err error) {
	err = c.retry.Do(ctx, func() error {
		resp, err := c.do(ctx, c.http, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := checkStatus(resp.StatusCode); err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", url, err)
		}
		next = NextPage(resp.Header.Get("Link"))
		return nil
	})
	return next, err
}

// Redirect performs a GET without following redirects and returns the
// redirect target. A response that is not a redirect, or one without a
// Location header, is reported as [ErrNoRedirect].
func (c *Client) Redirect(ctx context.Context, url string) (string, error) {
	var location string
	err := c.retry.Do(ctx, func() error {
		resp, err := c.do(ctx, c.noFollow, url)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			if err := checkStatus(resp.StatusCode); err != nil {
				return fmt.Errorf("GET %s: %w", url, err)
			}
			return fmt.Errorf("GET %s: %w: status %d", url, ErrNoRedirect, resp.StatusCode)
		}
		loc, err := resp.Location()
		if err != nil {
			return fmt.Errorf("GET %s: %w: %v", url, ErrNoRedirect, err)
		}
		location = loc.String()
		return nil
	})
	return location, err
}

// Open performs a GET, following redirects, and returns the response once a
// 2xx status arrives. The caller must close the body. The client timeout
// bounds the wait for response headers only; reading the body is bounded by
// ctx, so large downloads are not cut off.
func (c *Client) Open(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	err := c.retry.Do(ctx, func() error {
		r, err := c.do(ctx, c.download, url)
		if err != nil {
			return err
		}
		if err := checkStatus(r.StatusCode); err != nil {
			r.Body.Close()
			return fmt.Errorf("GET %s: %w", url, err)
		}
		resp = r
		return nil
	})
	return resp, err
}

// downloadClient derives a client from hc whose timeout applies to response
// headers instead of the whole exchange. Clients with a custom transport
// keep their overall timeout.
func downloadClient(hc *http.Client) *http.Client {
	dl := *hc
	if hc.Timeout <= 0 {
		return &dl
	}
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	t, ok := rt.(*http.Transport)
	if !ok {
		return &dl
	}
	t = t.Clone()
	t.ResponseHeaderTimeout = hc.Timeout
	dl.Transport = t
	dl.Timeout = 0
	return &dl
}

func (c *Client) do(ctx context.Context, hc *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusTooManyRequests, code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
