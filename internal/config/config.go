// Package config loads the gitdeps tool configuration.
//
// The configuration lives in a TOML file, by default
// $XDG_CONFIG_HOME/gitdeps/config.toml. Every key is optional:
//
//	components_dir = "components"       # relative to the project directory
//	hosted_hosts   = ["github.com"]     # hosts served through the REST API
//	api_url        = "https://api.github.com"
//	git_binary     = "git"
//	http_timeout   = "60s"
//	git_timeout    = "10m"
//	retries        = 0                  # extra attempts for transient API failures
//	cache_ttl      = "168h"             # archive cache lifetime, "0s" keeps forever
//	concurrency    = 4                  # parallel ref queries
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/gitcli"
	"github.com/matzehuels/gitdeps/pkg/integrations"
	"github.com/matzehuels/gitdeps/pkg/integrations/github"
	"github.com/matzehuels/gitdeps/pkg/pipeline"
	"github.com/matzehuels/gitdeps/pkg/repo"
)

const (
	appName  = "gitdeps"
	fileName = "config.toml"

	// DefaultComponentsDir is where dependencies are installed, relative to
	// the project directory.
	DefaultComponentsDir = "components"
	// DefaultCacheTTL is how long cached archives are reused.
	DefaultCacheTTL = 7 * 24 * time.Hour
	// MaxRetries caps the retries setting.
	MaxRetries = 10
)

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds the tool settings.
type Config struct {
	ComponentsDir string   `toml:"components_dir"`
	HostedHosts   []string `toml:"hosted_hosts"`
	APIURL        string   `toml:"api_url"`
	GitBinary     string   `toml:"git_binary"`
	HTTPTimeout   Duration `toml:"http_timeout"`
	GitTimeout    Duration `toml:"git_timeout"`
	Retries       int      `toml:"retries"`
	CacheTTL      Duration `toml:"cache_ttl"`
	Concurrency   int      `toml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ComponentsDir: DefaultComponentsDir,
		HostedHosts:   append([]string(nil), repo.DefaultHostedHosts...),
		APIURL:        github.DefaultBaseURL,
		GitBinary:     "git",
		HTTPTimeout:   Duration{integrations.DefaultHTTPTimeout},
		GitTimeout:    Duration{gitcli.DefaultTimeout},
		CacheTTL:      Duration{DefaultCacheTTL},
		Concurrency:   pipeline.DefaultConcurrency,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/gitdeps/config.toml (or the
// platform's equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, fileName), nil
}

// Load reads the configuration at path over the defaults. An empty path
// means [DefaultPath], which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ComponentsDir) == "" {
		return fmt.Errorf("components_dir must not be empty")
	}
	if c.GitBinary == "" {
		return fmt.Errorf("git_binary must not be empty")
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.HTTPTimeout.Duration <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.GitTimeout.Duration <= 0 {
		return fmt.Errorf("git_timeout must be positive")
	}
	if c.CacheTTL.Duration < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.Retries < 0 || c.Retries > MaxRetries {
		return fmt.Errorf("retries must be between 0 and %d", MaxRetries)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	for _, h := range c.HostedHosts {
		if strings.TrimSpace(h) == "" || strings.ContainsAny(h, "/:") {
			return fmt.Errorf("hosted_hosts entry %q must be a bare host name", h)
		}
	}
	return nil
}
