package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// ValidateConfig checks a defaulted configuration. The first problem found
// is returned as an InvalidConfigKind error.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validatePaths,
		v.validatePermalinks,
		v.validateCollections,
		v.validateTaxonomies,
		v.validateBuild,
		v.validateServe,
		v.validateLogging,
		v.validateNotify,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func invalid(field, format string, args ...any) error {
	return ferrors.ConfigError(fmt.Sprintf(format, args...)).WithContext("field", field).Build()
}

func (cv *configurationValidator) validatePaths() error {
	c := cv.config
	for field, p := range map[string]string{"source": c.Source, "layouts": c.Layouts, "data": c.Data, "static": c.Static} {
		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return invalid(field, "%s must be a relative path inside the site directory, got %q", field, p)
		}
	}
	if filepath.Clean(c.Output) == "." {
		return invalid("output", "output directory must not be the site directory")
	}
	if filepath.Clean(c.Output) == filepath.Clean(c.Source) {
		return invalid("output", "output directory must differ from source directory")
	}
	return nil
}

func (cv *configurationValidator) validatePermalinks() error {
	if !strings.HasPrefix(cv.config.Permalink, "/") {
		return invalid("permalink", "permalink pattern must start with '/', got %q", cv.config.Permalink)
	}
	return nil
}

func (cv *configurationValidator) validateCollections() error {
	seen := map[string]bool{}
	for i, c := range cv.config.Collections {
		field := fmt.Sprintf("collections[%d]", i)
		switch {
		case c.Name == "":
			return invalid(field, "collection name is required")
		case c.Name == "pages":
			return invalid(field, "collection name %q is reserved", c.Name)
		case seen[c.Name]:
			return invalid(field, "duplicate collection %q", c.Name)
		case c.Permalink != "" && !strings.HasPrefix(c.Permalink, "/"):
			return invalid(field, "permalink pattern must start with '/', got %q", c.Permalink)
		case c.ListPermalink != "" && !strings.HasSuffix(c.ListPermalink, "/"):
			return invalid(field, "list permalink must end with '/', got %q", c.ListPermalink)
		case c.Paginate < 0:
			return invalid(field, "paginate must not be negative")
		case c.Paginate > 0 && c.ListLayout == "":
			return invalid(field, "paginate requires list_layout")
		case !filepath.IsLocal(filepath.FromSlash(c.Dir)):
			return invalid(field, "collection dir must be relative to source, got %q", c.Dir)
		}
		seen[c.Name] = true
	}
	return nil
}

func (cv *configurationValidator) validateTaxonomies() error {
	seen := map[string]bool{}
	for i, t := range cv.config.Taxonomies {
		field := fmt.Sprintf("taxonomies[%d]", i)
		switch {
		case t.Name == "":
			return invalid(field, "taxonomy name is required")
		case seen[t.Name]:
			return invalid(field, "duplicate taxonomy %q", t.Name)
		case t.Permalink != "" && !strings.HasPrefix(t.Permalink, "/"):
			return invalid(field, "permalink pattern must start with '/', got %q", t.Permalink)
		}
		seen[t.Name] = true
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if b.FullRebuildRatio <= 0 || b.FullRebuildRatio > 1 {
		return invalid("build.full_rebuild_ratio", "full_rebuild_ratio must be in (0,1], got %v", b.FullRebuildRatio)
	}
	return validDuration("build.timeout", b.Timeout)
}

func (cv *configurationValidator) validateServe() error {
	s := cv.config.Serve
	if s.Port < 0 || s.Port > 65535 {
		return invalid("serve.port", "port out of range: %d", s.Port)
	}
	if err := validDuration("serve.debounce", s.Debounce); err != nil {
		return err
	}
	return validDuration("serve.max_delay", s.MaxDelay)
}

func (cv *configurationValidator) validateLogging() error {
	l := cv.config.Logging
	if _, err := logLevels.Parse(string(l.Level)); err != nil {
		return err
	}
	_, err := logFormats.Parse(string(l.Format))
	return err
}

func (cv *configurationValidator) validateNotify() error {
	n := cv.config.Notify
	if n.Retries < 0 {
		return invalid("notify.retries", "retries must not be negative, got %d", n.Retries)
	}
	_, err := retry.Modes.Parse(n.Backoff)
	return err
}

func validDuration(field, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return invalid(field, "invalid duration %q", s)
	}
	if d < 0 {
		return invalid(field, "duration must not be negative")
	}
	return nil
}
