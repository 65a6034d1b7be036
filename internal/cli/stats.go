package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitdeps/pkg/observability"
)

// runStats counts the events of one command run and logs the slow ones at
// debug level. It is registered with the observability hooks by newEnv.
type runStats struct {
	logger *log.Logger

	refQueries  atomic.Int64
	fetches     atomic.Int64
	requests    atomic.Int64
	httpErrors  atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	cacheBytes  atomic.Int64
}

func newRunStats(logger *log.Logger) *runStats {
	return &runStats{logger: logger}
}

func (s *runStats) register() {
	observability.SetPipelineHooks(s)
	observability.SetCacheHooks(s)
	observability.SetHTTPHooks(s)
}

// log writes the counters as one debug line.
func (s *runStats) log() {
	s.logger.Debug("run stats",
		"ref_queries", s.refQueries.Load(),
		"fetches", s.fetches.Load(),
		"http_requests", s.requests.Load(),
		"http_errors", s.httpErrors.Load(),
		"cache_hits", s.cacheHits.Load(),
		"cache_misses", s.cacheMisses.Load(),
		"cache_bytes", s.cacheBytes.Load(),
	)
}

func (s *runStats) OnRefsComplete(_ context.Context, url string, count int, d time.Duration, err error) {
	s.refQueries.Add(1)
	if err != nil {
		s.logger.Debug("ref query failed", "repo", url, "duration", d)
	}
}

func (s *runStats) OnFetchStart(context.Context, string, string) {}

func (s *runStats) OnFetchComplete(_ context.Context, url, treeish string, cached bool, d time.Duration, err error) {
	if !cached && err == nil {
		s.fetches.Add(1)
	}
}

func (s *runStats) OnInstallComplete(_ context.Context, name, treeish string, skipped bool, err error) {
	if err != nil {
		s.logger.Debug("install aborted", "dep", name)
	}
}

func (s *runStats) OnCacheHit(context.Context, string)  { s.cacheHits.Add(1) }
func (s *runStats) OnCacheMiss(context.Context, string) { s.cacheMisses.Add(1) }

func (s *runStats) OnCacheSet(_ context.Context, _ string, size int64) {
	s.cacheBytes.Add(size)
}

func (s *runStats) OnRequest(context.Context, string, string, string) { s.requests.Add(1) }

func (s *runStats) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	s.logger.Debug("http", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (s *runStats) OnError(_ context.Context, method, host, path string, err error) {
	s.httpErrors.Add(1)
	s.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

var (
	_ observability.PipelineHooks = (*runStats)(nil)
	_ observability.CacheHooks    = (*runStats)(nil)
	_ observability.HTTPHooks     = (*runStats)(nil)
)
