package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// View names recorded by the renderer when a template reads graph state
// beyond its own entity.
const (
	ViewNeighbors = "neighbors"
	ViewRevision  = "revision"
	viewColl      = "collection:"
	viewTax       = "taxonomy:"
	viewParam     = "param:"

	// AllKeys stands for the whole metadata map in ParamView.
	AllKeys = "*"
)

// CollectionView names the view of a collection's ordered membership.
func CollectionView(name string) string { return viewColl + name }

// TaxonomyView names the view of a taxonomy's set of terms.
func TaxonomyView(name string) string { return viewTax + name }

// ParamView names the view of one metadata key of another entity.
func ParamView(id, key string) string { return viewParam + id + "|" + key }

// ViewFingerprint summarizes the part of the graph a view exposes to entity
// id. Two graphs yield the same fingerprint for a view exactly when a
// template reading it would see the same thing.
func (g *Graph) ViewFingerprint(id, view string) string {
	switch {
	case view == ViewNeighbors:
		e, ok := g.entities[id]
		if !ok {
			return ""
		}
		return hashParts(g.summary(e.Prev), g.summary(e.Next))
	case view == ViewRevision:
		return g.Site.Revision
	case strings.HasPrefix(view, viewColl), strings.HasPrefix(view, viewTax):
		return g.fingerprints[view]
	case strings.HasPrefix(view, viewParam):
		ref := view[len(viewParam):]
		i := strings.LastIndexByte(ref, '|')
		if i < 0 {
			return ""
		}
		return g.paramFingerprint(ref[:i], ref[i+1:])
	}
	return ""
}

func (g *Graph) paramFingerprint(id, key string) string {
	e, ok := g.entities[id]
	if !ok {
		return ""
	}
	if key == AllKeys {
		return hashParts(AllKeys, e.MetaHash)
	}
	v, ok := e.Meta()[key]
	if !ok {
		return hashParts("absent")
	}
	out, err := yaml.Marshal(v.Node())
	if err != nil {
		return hashParts(v.Kind().String(), v.Text())
	}
	return hashParts(string(out))
}

func (g *Graph) computeFingerprints() {
	for name, c := range g.collections {
		parts := make([]string, 0, len(c.Items)+1)
		parts = append(parts, c.Title)
		for _, id := range c.Items {
			parts = append(parts, g.summary(id))
		}
		g.fingerprints[CollectionView(name)] = hashParts(parts...)
	}
	for tax, terms := range g.taxonomies {
		parts := make([]string, 0, len(terms))
		for _, name := range terms {
			parts = append(parts, name+"="+g.fingerprints[CollectionView(name)])
		}
		g.fingerprints[TaxonomyView(tax)] = hashParts(parts...)
	}
}

// summary covers what every listing and neighbor link exposes: identity,
// URL, slug, title and date. Other metadata is tracked per key through
// ParamView, and body edits through the document path.
func (g *Graph) summary(id string) string {
	e, ok := g.entities[id]
	if !ok {
		return ""
	}
	date := ""
	if e.HasDate {
		date = e.Date.Format(time.RFC3339)
	}
	return strings.Join([]string{e.ID, e.Permalink, e.Slug, e.Title, date}, "\x1f")
}

func hashParts(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
