package config

import (
	"crypto/sha256"
	"encoding/hex"

	"gopkg.in/yaml.v3"
)

// outputView is the subset of the configuration that shapes rendered output.
// Dev server, notification and logging settings are left out so tuning them
// never forces a full rebuild.
type outputView struct {
	Title         string             `yaml:"title"`
	BaseURL       string             `yaml:"base_url"`
	Source        string             `yaml:"source"`
	Layouts       string             `yaml:"layouts"`
	Data          string             `yaml:"data"`
	Static        string             `yaml:"static"`
	Permalink     string             `yaml:"permalink"`
	DefaultLayout string             `yaml:"default_layout"`
	Collections   []CollectionConfig `yaml:"collections"`
	Taxonomies    []TaxonomyConfig   `yaml:"taxonomies"`
	Params        map[string]any     `yaml:"params"`
	Drafts        bool               `yaml:"drafts"`
	Future        bool               `yaml:"future"`
	Markdown      MarkdownConfig     `yaml:"markdown"`
}

// Hash is a stable sha256 over every setting that affects rendered output.
// yaml.v3 emits map keys sorted, so equal configurations hash equally.
func (c *Config) Hash() string {
	data, err := yaml.Marshal(outputView{
		Title:         c.Title,
		BaseURL:       c.BaseURL,
		Source:        c.Source,
		Layouts:       c.Layouts,
		Data:          c.Data,
		Static:        c.Static,
		Permalink:     c.Permalink,
		DefaultLayout: c.DefaultLayout,
		Collections:   c.Collections,
		Taxonomies:    c.Taxonomies,
		Params:        c.Params,
		Drafts:        c.Build.Drafts,
		Future:        c.Build.Future,
		Markdown:      c.Markdown,
	})
	if err != nil {
		// Params come from YAML and always marshal back.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
