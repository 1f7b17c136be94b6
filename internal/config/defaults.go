package config

import (
	"runtime"
	"strings"
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// SiteDefaultApplier fills source layout and permalink defaults.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Source == "" {
		cfg.Source = "content"
	}
	if cfg.Layouts == "" {
		cfg.Layouts = "layouts"
	}
	if cfg.Data == "" {
		cfg.Data = "data"
	}
	if cfg.Static == "" {
		cfg.Static = "static"
	}
	if cfg.Output == "" {
		cfg.Output = "public"
	}
	if cfg.Permalink == "" {
		cfg.Permalink = "/:path/"
	}
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = "default"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	for i := range cfg.Collections {
		c := &cfg.Collections[i]
		if c.Dir == "" {
			c.Dir = c.Name
		}
	}
}

// BuildDefaultApplier handles Build configuration defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Build.Timeout == "" {
		cfg.Build.Timeout = "5m"
	}
	if cfg.Build.FullRebuildRatio == 0 {
		cfg.Build.FullRebuildRatio = 0.5
	}
	if cfg.Build.StateDir == "" {
		cfg.Build.StateDir = ".sitebuilder"
	}
}

// ServeDefaultApplier handles dev server defaults.
type ServeDefaultApplier struct{}

func (ServeDefaultApplier) Domain() string { return "serve" }

func (ServeDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = "127.0.0.1"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 1313
	}
	if cfg.Serve.Debounce == "" {
		cfg.Serve.Debounce = "150ms"
	}
	if cfg.Serve.MaxDelay == "" {
		cfg.Serve.MaxDelay = "2s"
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "sitebuilder.builds"
	}
	// Unknown spellings are left for validation to reject.
	if lvl, err := logLevels.Parse(string(cfg.Logging.Level)); err == nil {
		cfg.Logging.Level = lvl
	}
	if f, err := logFormats.Parse(string(cfg.Logging.Format)); err == nil {
		cfg.Logging.Format = f
	}
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{SiteDefaultApplier{}, BuildDefaultApplier{}, ServeDefaultApplier{}}
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		a.ApplyDefaults(cfg)
	}
	return nil
}
