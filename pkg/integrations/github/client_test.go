package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/gitdeps/pkg/integrations"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(Options{BaseURL: serverURL, UserAgent: "gitdeps/test"})
}

func refsJSON(refs ...string) []refResponse {
	out := make([]refResponse, len(refs))
	for i, r := range refs {
		out[i].Ref = r
	}
	return out
}

func TestClient_Refs(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/git/refs" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != "gitdeps/test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode(refsJSON("refs/tags/v1.3.5"))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/git/refs?per_page=100&page=2>; rel="next"`, server.URL))
		json.NewEncoder(w).Encode(refsJSON("refs/heads/main", "refs/tags/v1.2.0"))
	}))
	defer server.Close()

	refs, err := testClient(t, server.URL).Refs(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("Refs() error: %v", err)
	}
	want := []string{"refs/heads/main", "refs/tags/v1.2.0", "refs/tags/v1.3.5"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("Refs() = %v, want %v", refs, want)
	}
}

func TestClient_RefsEmptyRepository(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	refs, err := testClient(t, server.URL).Refs(context.Background(), "acme", "empty")
	if err != nil {
		t.Fatalf("Refs() error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Refs() = %v, want empty", refs)
	}
}

func TestClient_RefsNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := testClient(t, server.URL).Refs(context.Background(), "acme", "missing")
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("Refs() error = %v, want ErrNotFound", err)
	}
}

func TestClient_Tarball(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/tarball/v1.3.5", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/codeload/acme/widgets/legacy.tar.gz/v1.3.5", http.StatusFound)
	})
	mux.HandleFunc("/codeload/acme/widgets/legacy.tar.gz/v1.3.5", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=acme-widgets-v1.3.5-0-gabc1234.tar.gz")
		w.Write([]byte("tarball"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	path, err := testClient(t, server.URL).Tarball(context.Background(), "acme", "widgets", "v1.3.5", dir)
	if err != nil {
		t.Fatalf("Tarball() error: %v", err)
	}
	if want := filepath.Join(dir, "acme-widgets-v1.3.5-0-gabc1234.tar.gz"); path != want {
		t.Errorf("Tarball() = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "tarball" {
		t.Errorf("content = %q", data)
	}
}

func TestClient_TarballBranchWithSlash(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _ = testClient(t, server.URL).Tarball(context.Background(), "acme", "widgets", "feature/login", t.TempDir())
	if gotPath != "/repos/acme/widgets/tarball/feature/login" {
		t.Errorf("request path = %q", gotPath)
	}
}

func TestClient_TarballErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "no redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("inline"))
			},
			want: integrations.ErrNoRedirect,
		},
		{
			name: "missing filename",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/asset" {
					w.Write([]byte("data"))
					return
				}
				http.Redirect(w, r, "/asset", http.StatusFound)
			},
			want: ErrNoFilename,
		},
		{
			name: "unknown ref",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			want: integrations.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := testClient(t, server.URL).Tarball(context.Background(), "acme", "widgets", "v1", t.TempDir())
			if !errors.Is(err, tt.want) {
				t.Errorf("Tarball() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"attachment; filename=acme-widgets-abc.tar.gz", "acme-widgets-abc.tar.gz"},
		{`attachment; filename="quoted.tar.gz"`, "quoted.tar.gz"},
		{"attachment; filename=../../etc/passwd", "passwd"},
		{"attachment", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Filename(tt.header); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	c = NewClient(Options{BaseURL: "https://ghe.example.com/api/v3/"})
	if c.BaseURL() != "https://ghe.example.com/api/v3" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}
