package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitdeps/pkg/cache"
	gderrors "github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/gitcli"
	"github.com/matzehuels/gitdeps/pkg/integrations/github"
	"github.com/matzehuels/gitdeps/pkg/repo"
)

type fakeRefs struct {
	refs []string
	err  error
}

func (f fakeRefs) Refs(context.Context, repo.Repository) ([]string, error) {
	return f.refs, f.err
}

type fakeBackend struct {
	calls    []string
	err      error
	lastRefs []string
}

func (b *fakeBackend) Archive(_ context.Context, _ repo.Repository, treeish string, refs []string, dir string) (string, error) {
	b.calls = append(b.calls, treeish)
	b.lastRefs = refs
	if b.err != nil {
		return "", b.err
	}
	path := filepath.Join(dir, "archive.tar")
	return path, os.WriteFile(path, []byte("archive of "+treeish), 0o644)
}

var widgetRefs = []string{
	"refs/heads/main",
	"refs/tags/v1.1.0",
	"refs/tags/v1.2.0",
	"refs/tags/v1.3.5",
	"refs/tags/v2.0.0",
}

func mustParse(t *testing.T, raw string) repo.Repository {
	t.Helper()
	r, err := repo.Parse(raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func newTestFetcher(t *testing.T, refs fakeRefs, hosted, git Backend, c cache.Cache) *Fetcher {
	t.Helper()
	return New(Options{Refs: refs, Hosted: hosted, Git: git, Cache: c, TmpDir: t.TempDir(), RunID: "test"})
}

func TestFetcher_RangeResolvesHighestTag(t *testing.T) {
	hosted := &fakeBackend{}
	f := newTestFetcher(t, fakeRefs{refs: widgetRefs}, hosted, nil, nil)

	res, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "^1.2.0")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer res.Cleanup()

	if res.Treeish != "v1.3.5" {
		t.Errorf("Treeish = %q, want v1.3.5", res.Treeish)
	}
	if !reflect.DeepEqual(hosted.calls, []string{"v1.3.5"}) {
		t.Errorf("backend calls = %v", hosted.calls)
	}
	if !reflect.DeepEqual(hosted.lastRefs, widgetRefs) {
		t.Errorf("backend refs = %v", hosted.lastRefs)
	}
	data, err := os.ReadFile(res.ArchivePath)
	if err != nil || string(data) != "archive of v1.3.5" {
		t.Errorf("archive = %q, %v", data, err)
	}
}

func TestFetcher_NoMatchingVersion(t *testing.T) {
	hosted := &fakeBackend{}
	f := newTestFetcher(t, fakeRefs{refs: widgetRefs}, hosted, nil, nil)

	_, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "^3.0.0")
	var nm *gderrors.NoMatchingVersionError
	if !errors.As(err, &nm) {
		t.Fatalf("Fetch() error = %v, want NoMatchingVersionError", err)
	}
	if nm.Range != "^3.0.0" || !reflect.DeepEqual(nm.Refs, widgetRefs) {
		t.Errorf("error = %+v", nm)
	}
	if len(hosted.calls) != 0 {
		t.Errorf("backend should not be called, got %v", hosted.calls)
	}
}

func TestFetcher_NonRangePassesThrough(t *testing.T) {
	git := &fakeBackend{}
	f := newTestFetcher(t, fakeRefs{refs: widgetRefs}, nil, git, nil)

	for _, spec := range []string{"main", "feature/login", "deadbeef"} {
		res, err := f.Fetch(context.Background(), mustParse(t, "git://example.com/widgets.git"), spec)
		if err != nil {
			t.Fatalf("Fetch(%q) error: %v", spec, err)
		}
		if res.Treeish != spec {
			t.Errorf("Treeish = %q, want %q", res.Treeish, spec)
		}
		res.Cleanup()
	}
}

func TestFetcher_RefsErrorPropagates(t *testing.T) {
	cause := gderrors.New(gderrors.ErrCodeRemoteQuery, "list refs")
	f := newTestFetcher(t, fakeRefs{err: cause}, &fakeBackend{}, nil, nil)

	_, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "main")
	if !gderrors.Is(err, gderrors.ErrCodeRemoteQuery) {
		t.Errorf("Fetch() error = %v, want REMOTE_QUERY", err)
	}
}

func TestFetcher_BackendErrorRemovesTempDir(t *testing.T) {
	tmp := t.TempDir()
	backend := &fakeBackend{err: gderrors.New(gderrors.ErrCodeDownload, "no redirect")}
	f := New(Options{Refs: fakeRefs{refs: widgetRefs}, Hosted: backend, TmpDir: tmp})

	_, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "v1.2.0")
	if !gderrors.Is(err, gderrors.ErrCodeDownload) {
		t.Fatalf("Fetch() error = %v, want DOWNLOAD", err)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up: %v", entries)
	}
}

func TestFetcher_CleanupRemovesTempDir(t *testing.T) {
	tmp := t.TempDir()
	f := New(Options{Refs: fakeRefs{refs: widgetRefs}, Hosted: &fakeBackend{}, TmpDir: tmp, RunID: "run1"})

	res, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "main")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(res.ArchivePath)), "gitdeps-run1-") {
		t.Errorf("temp dir %s lacks run prefix", res.ArchivePath)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("Cleanup() left %v", entries)
	}
}

func TestFetcher_CachesImmutableArchives(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	hosted := &fakeBackend{}
	f := newTestFetcher(t, fakeRefs{refs: widgetRefs}, hosted, nil, c)
	r := mustParse(t, "acme/widgets")

	first, err := f.Fetch(context.Background(), r, "v1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	first.Cleanup()
	if first.Cached {
		t.Error("first fetch should not be cached")
	}

	second, err := f.Fetch(context.Background(), r, "v1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second fetch should be served from cache")
	}
	if len(hosted.calls) != 1 {
		t.Errorf("backend called %d times, want 1", len(hosted.calls))
	}
	data, err := os.ReadFile(second.ArchivePath)
	if err != nil || string(data) != "archive of v1.2.0" {
		t.Errorf("cached archive = %q, %v", data, err)
	}
	if err := second.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(second.ArchivePath); err != nil {
		t.Errorf("Cleanup() removed cached archive: %v", err)
	}

	for range 2 {
		res, err := f.Fetch(context.Background(), r, "main")
		if err != nil {
			t.Fatal(err)
		}
		if res.Cached {
			t.Error("branch archives must not be cached")
		}
		res.Cleanup()
	}
	if len(hosted.calls) != 3 {
		t.Errorf("backend called %d times, want 3", len(hosted.calls))
	}
}

func TestFetcher_EvictDropsCachedArchive(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	hosted := &fakeBackend{}
	f := newTestFetcher(t, fakeRefs{refs: widgetRefs}, hosted, nil, c)
	r := mustParse(t, "acme/widgets")

	res, err := f.Fetch(context.Background(), r, "v1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	res.Cleanup()

	if err := f.Evict(context.Background(), r, "v1.2.0"); err != nil {
		t.Fatalf("Evict() error: %v", err)
	}
	if _, hit, _ := c.Get(context.Background(), cache.ArchiveKey(r.URL, "v1.2.0")); hit {
		t.Error("archive still cached after Evict()")
	}
	res, err = f.Fetch(context.Background(), r, "v1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	if res.Cached || len(hosted.calls) != 2 {
		t.Errorf("Cached = %v, backend calls = %d; want a fresh fetch", res.Cached, len(hosted.calls))
	}

	// Evicting an archive that was never cached is fine.
	if err := f.Evict(context.Background(), r, "v9.9.9"); err != nil {
		t.Errorf("Evict() missing entry error: %v", err)
	}
}

func TestFetcher_LogsFetchDuration(t *testing.T) {
	var buf bytes.Buffer
	f := New(Options{
		Refs:   fakeRefs{refs: widgetRefs},
		Hosted: &fakeBackend{},
		TmpDir: t.TempDir(),
		Logger: log.New(&buf),
	})

	res, err := f.Fetch(context.Background(), mustParse(t, "acme/widgets"), "v1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	out := buf.String()
	for _, want := range []string{"GET archive acme/widgets#v1.2.0", "duration="} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestImmutable(t *testing.T) {
	refs := []string{"refs/heads/main", "refs/heads/cafebabe", "refs/tags/v1.0.0"}
	tests := []struct {
		treeish string
		want    bool
	}{
		{"v1.0.0", true},
		{"main", false},
		{"a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0", true},
		{"deadbee", true},
		{"cafebabe", false},
		{"HEAD", false},
		{"v9.9.9", false},
	}
	for _, tt := range tests {
		if got := Immutable(tt.treeish, refs); got != tt.want {
			t.Errorf("Immutable(%q) = %v, want %v", tt.treeish, got, tt.want)
		}
	}
}

func TestHostedBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/tarball/v1.3.5", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/asset", http.StatusFound)
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=acme-widgets-v1.3.5.tar.gz")
		w.Write([]byte("gz"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	b := &HostedBackend{Client: github.NewClient(github.Options{BaseURL: server.URL})}
	r := mustParse(t, "acme/widgets")

	dir := t.TempDir()
	path, err := b.Archive(context.Background(), r, "v1.3.5", nil, dir)
	if err != nil {
		t.Fatalf("Archive() error: %v", err)
	}
	if filepath.Base(path) != "acme-widgets-v1.3.5.tar.gz" {
		t.Errorf("Archive() = %q", path)
	}

	_, err = b.Archive(context.Background(), r, "v0.0.1", nil, dir)
	if !gderrors.Is(err, gderrors.ErrCodeDownload) {
		t.Errorf("Archive() error = %v, want DOWNLOAD", err)
	}
}

func initRepo(t *testing.T) (dir, commit string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir = t.TempDir()
	git := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}
	git("init", "--quiet")
	git("symbolic-ref", "HEAD", "refs/heads/main")
	os.WriteFile(filepath.Join(dir, "index.js"), []byte("module.exports = 1\n"), 0o644)
	git("add", ".")
	git("commit", "--quiet", "-m", "one")
	commit = git("rev-parse", "HEAD")
	os.WriteFile(filepath.Join(dir, "index.js"), []byte("module.exports = 2\n"), 0o644)
	git("commit", "--quiet", "-am", "two")
	git("tag", "v1.0.0")
	return dir, commit
}

func TestGitBackend(t *testing.T) {
	src, commit := initRepo(t)
	runner := gitcli.New("git", 0, nil)
	r := mustParse(t, "file://"+src)

	refs, err := runner.LsRemote(context.Background(), r.URL)
	if err != nil {
		t.Fatal(err)
	}

	b := &GitBackend{Git: runner}
	for _, treeish := range []string{"v1.0.0", "main", commit} {
		t.Run(treeish, func(t *testing.T) {
			path, err := b.Archive(context.Background(), r, treeish, refs, t.TempDir())
			if err != nil {
				t.Fatalf("Archive() error: %v", err)
			}
			if info, err := os.Stat(path); err != nil || info.Size() == 0 {
				t.Errorf("archive missing: %v", err)
			}
		})
	}
}

func TestGitBackend_CloneFailure(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	b := &GitBackend{Git: gitcli.New("git", 0, nil)}
	r := mustParse(t, filepath.Join(t.TempDir(), "missing.git"))

	_, err := b.Archive(context.Background(), r, "main", nil, t.TempDir())
	if !gderrors.Is(err, gderrors.ErrCodeClone) {
		t.Errorf("Archive() error = %v, want CLONE", err)
	}
}
