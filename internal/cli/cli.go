package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitdeps/internal/config"
	"github.com/matzehuels/gitdeps/pkg/buildinfo"
	"github.com/matzehuels/gitdeps/pkg/cache"
	"github.com/matzehuels/gitdeps/pkg/fetch"
	"github.com/matzehuels/gitdeps/pkg/gitcli"
	"github.com/matzehuels/gitdeps/pkg/httputil"
	"github.com/matzehuels/gitdeps/pkg/integrations"
	"github.com/matzehuels/gitdeps/pkg/integrations/github"
	"github.com/matzehuels/gitdeps/pkg/observability"
	"github.com/matzehuels/gitdeps/pkg/refs"
)

// appName is the application name used for directories and display.
const appName = "gitdeps"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	RunID  string

	stdout io.Writer
	stderr io.Writer

	configPath string
	noCache    bool
	verbose    bool
}

// New creates a CLI writing reports to stdout and logs to stderr.
func New(stdout, stderr io.Writer, level log.Level) *CLI {
	runID := uuid.NewString()[:8]
	return &CLI{
		Logger: newLogger(stderr, level).With("run", runID),
		RunID:  runID,
		stdout: stdout,
		stderr: stderr,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. Running it without a subcommand installs dependencies.
func (c *CLI) RootCommand() *cobra.Command {
	install := c.installCommand()

	root := &cobra.Command{
		Use:   appName,
		Short: "gitdeps installs source dependencies from git repositories",
		Long: `gitdeps reads the git dependencies a project declares (package.json
"gitCloneDependencies", gitdeps.toml or gitdeps.yaml), resolves version ranges
against repository tags and unpacks each dependency into the components
directory. Dependencies that are already up to date are skipped.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         install.RunE,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gitdeps/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "do not read or write the archive cache")
	root.Flags().AddFlagSet(install.Flags())

	root.AddCommand(install)
	root.AddCommand(c.refsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Environment
// =============================================================================

// env wires the pipeline components from the configuration.
type env struct {
	cfg      config.Config
	cache    cache.Cache
	resolver *refs.Resolver
	fetcher  *fetch.Fetcher
	stats    *runStats
}

func (c *CLI) newEnv() (*env, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	stats := newRunStats(c.Logger)
	stats.register()

	gh := github.NewClient(github.Options{
		BaseURL:    cfg.APIURL,
		UserAgent:  buildinfo.UserAgent(),
		HTTPClient: integrations.NewHTTPClient(cfg.HTTPTimeout.Duration),
		Retry:      httputil.Policy{Retries: cfg.Retries},
	})
	git := gitcli.New(cfg.GitBinary, cfg.GitTimeout.Duration, c.Logger)

	resolver := refs.NewResolver(refs.Backends{
		Hosted: &refs.HostedLister{Client: gh},
		Git:    &refs.GitLister{Git: git},
	}, c.Logger)

	archives := c.newCache(cfg)
	return &env{
		cfg:      cfg,
		cache:    archives,
		stats:    stats,
		resolver: resolver,
		fetcher: fetch.New(fetch.Options{
			Refs:   resolver,
			Hosted: &fetch.HostedBackend{Client: gh},
			Git:    &fetch.GitBackend{Git: git},
			Cache:  archives,
			RunID:  c.RunID,
			Logger: c.Logger,
		}),
	}, nil
}

// Close logs the run statistics, unregisters the hooks and closes the cache.
func (e *env) Close() error {
	e.stats.log()
	observability.Reset()
	return e.cache.Close()
}

func (c *CLI) newCache(cfg config.Config) cache.Cache {
	if c.noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("archive cache disabled", "error", err)
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir, cfg.CacheTTL.Duration)
	if err != nil {
		c.Logger.Warn("archive cache disabled", "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gitdeps/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
