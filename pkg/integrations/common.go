package integrations

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds a single API request, including body transfer.
// For downloads through [Client.Open] it bounds the wait for response headers.
const DefaultHTTPTimeout = 60 * time.Second

var (
	// ErrNotFound is returned when a repository or ref doesn't exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned for 409 responses (GitHub answers 409 for empty repositories).
	ErrConflict = errors.New("conflict")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, unexpected statuses).
	ErrNetwork = errors.New("network error")

	// ErrNoRedirect is returned when an endpoint expected to redirect did not.
	ErrNoRedirect = errors.New("missing redirect")
)

// NewHTTPClient creates an HTTP client with the given timeout
// ([DefaultHTTPTimeout] when zero).
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NextPage extracts the rel="next" target from an RFC 8288 Link header.
// Returns "" when there is no next page.
func NextPage(link string) string {
	for _, part := range strings.Split(link, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segs[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
