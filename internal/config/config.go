// Package config loads sitebuilder.yaml: site metadata, source layout,
// collections, taxonomies, build tuning and dev server settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "sitebuilder.yaml"

// Config is the site configuration. Relative paths are resolved against the
// directory holding the configuration file (Root).
type Config struct {
	Title         string             `yaml:"title"`
	BaseURL       string             `yaml:"base_url"`
	Source        string             `yaml:"source"`
	Layouts       string             `yaml:"layouts"`
	Data          string             `yaml:"data"`
	Static        string             `yaml:"static"`
	Output        string             `yaml:"output"`
	Permalink     string             `yaml:"permalink"`
	DefaultLayout string             `yaml:"default_layout"`
	Collections   []CollectionConfig `yaml:"collections,omitempty"`
	Taxonomies    []TaxonomyConfig   `yaml:"taxonomies,omitempty"`
	Params        map[string]any     `yaml:"params,omitempty"`
	Build         BuildConfig        `yaml:"build"`
	Markdown      MarkdownConfig     `yaml:"markdown"`
	Serve         ServeConfig        `yaml:"serve"`
	Notify        NotifyConfig       `yaml:"notify,omitempty"`
	Metrics       MetricsConfig      `yaml:"metrics,omitempty"`
	Logging       LoggingConfig      `yaml:"logging,omitempty"`

	root string
}

// CollectionConfig scopes a collection to a directory below Source.
type CollectionConfig struct {
	Name          string `yaml:"name"`
	Dir           string `yaml:"dir"`
	Permalink     string `yaml:"permalink,omitempty"`
	Layout        string `yaml:"layout,omitempty"`
	Paginate      int    `yaml:"paginate,omitempty"`
	ListLayout    string `yaml:"list_layout,omitempty"`
	ListPermalink string `yaml:"list_permalink,omitempty"`
}

// TaxonomyConfig names a metadata key (tags, categories) whose values become terms.
type TaxonomyConfig struct {
	Name      string `yaml:"name"`
	Permalink string `yaml:"permalink,omitempty"`
	Layout    string `yaml:"layout,omitempty"`
}

// BuildConfig tunes the build orchestrator.
type BuildConfig struct {
	Workers          int     `yaml:"workers"`
	Timeout          string  `yaml:"timeout"`
	Drafts           bool    `yaml:"drafts"`
	Future           bool    `yaml:"future"`
	FullRebuildRatio float64 `yaml:"full_rebuild_ratio"`
	StateDir         string  `yaml:"state_dir"`
	CheckLinks       *bool   `yaml:"check_links,omitempty"`
}

// MarkdownConfig controls markdown conversion.
type MarkdownConfig struct {
	Unsafe   bool `yaml:"unsafe"`
	Sanitize bool `yaml:"sanitize"`
}

// ServeConfig configures the dev server.
type ServeConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Debounce        string `yaml:"debounce"`
	MaxDelay        string `yaml:"max_delay"`
	LiveReload      *bool  `yaml:"live_reload,omitempty"`
	RebuildSchedule string `yaml:"rebuild_schedule,omitempty"` // duration or cron expression, empty disables
}

// NotifyConfig enables build event publishing over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Retries int    `yaml:"retries,omitempty"`
	Backoff string `yaml:"backoff,omitempty"` // fixed, linear or exponential
}

// MetricsConfig enables Prometheus metrics on the dev server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig sets the default log level and format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at path.
// .env and .env.local next to the file are loaded first; variables already
// set in the environment win.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.ConfigError("cannot resolve configuration path").WithCause(err).WithContext("path", path).Build()
	}
	if err := loadEnvFiles(filepath.Dir(abs)); err != nil {
		return nil, ferrors.ConfigError("failed to load environment file").WithCause(err).WithContext("path", path).Build()
	}

	// #nosec G304 -- path is the user-supplied configuration file
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("path", path).Build()
		}
		return nil, ferrors.ConfigError("failed to read configuration file").WithCause(err).WithContext("path", path).Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.root = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes, defaults and validates configuration bytes. Root is left
// empty, so relative paths resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ferrors.ConfigError("failed to parse configuration").WithCause(err).Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Root is the site directory all relative paths are resolved against.
func (c *Config) Root() string {
	if c.root == "" {
		return "."
	}
	return c.root
}

// SetRoot overrides the site directory.
func (c *Config) SetRoot(dir string) { c.root = dir }

// Resolve returns p relative to Root unless it is absolute.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root(), p)
}

// OutputDir is the resolved output directory.
func (c *Config) OutputDir() string { return c.Resolve(c.Output) }

// StateDir is the resolved directory holding build state and reports.
func (c *Config) StateDir() string { return c.Resolve(c.Build.StateDir) }

// BuildTimeout is the parsed build timeout (zero disables it).
func (c *Config) BuildTimeout() time.Duration { return mustDuration(c.Build.Timeout) }

// DebounceWindow is the parsed dev server quiet window.
func (c *Config) DebounceWindow() time.Duration { return mustDuration(c.Serve.Debounce) }

// MaxDelay bounds how long a steady stream of changes may postpone a rebuild.
func (c *Config) MaxDelay() time.Duration { return mustDuration(c.Serve.MaxDelay) }

// LiveReloadEnabled reports whether browsers are notified after builds.
func (c *Config) LiveReloadEnabled() bool { return c.Serve.LiveReload == nil || *c.Serve.LiveReload }

// LinkCheckEnabled reports whether rendered artifacts are scanned for broken internal links.
func (c *Config) LinkCheckEnabled() bool { return c.Build.CheckLinks == nil || *c.Build.CheckLinks }

// Addr is the dev server listen address.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Serve.Host, c.Serve.Port) }

// mustDuration parses values already checked by ValidateConfig.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
