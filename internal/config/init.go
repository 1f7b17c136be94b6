package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Title:         "My Site",
		BaseURL:       "https://example.com",
		Source:        "content",
		Layouts:       "layouts",
		Data:          "data",
		Static:        "static",
		Output:        "public",
		Permalink:     "/:path/",
		DefaultLayout: "default",
		Collections: []CollectionConfig{{
			Name:       "posts",
			Dir:        "posts",
			Permalink:  "/posts/:slug/",
			Layout:     "post",
			Paginate:   10,
			ListLayout: "list",
		}},
		Taxonomies: []TaxonomyConfig{{Name: "tags", Layout: "list"}},
		Params:     map[string]any{"author": "${SITE_AUTHOR}"},
		Build: BuildConfig{
			Timeout:          "5m",
			FullRebuildRatio: 0.5,
			StateDir:         ".sitebuilder",
		},
		Serve: ServeConfig{
			Host:     "127.0.0.1",
			Port:     1313,
			Debounce: "150ms",
			MaxDelay: "2s",
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Init writes an example configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.InternalError("failed to marshal example configuration").WithCause(err).Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("failed to create configuration directory").WithCause(err).WithContext("path", dir).Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.FileSystemError("failed to write configuration file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
