// Package layout models the named layouts and partials of a site and resolves
// layout inheritance chains.
package layout

import (
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// PartialsDir is the sub-directory of the layouts tree holding partials.
const PartialsDir = "partials"

// Template is one layout or partial source.
type Template struct {
	Name   string
	Path   string
	Parent string // parent layout name, "" for a root layout
	Source string // template text with any front matter removed
	Hash   string
	// Err is set when the layout header could not be parsed.
	Err error
}

// Set is the immutable collection of layouts and partials for one build.
type Set struct {
	layouts  map[string]*Template
	partials map[string]*Template
}

// NewSet builds a Set from discovered layout files. Files under the
// partials directory become partials; every other file is a layout named by
// its path without extension, e.g. "post" or "blog/list".
func NewSet(files []content.SourceFile) *Set {
	s := &Set{layouts: map[string]*Template{}, partials: map[string]*Template{}}
	for _, f := range files {
		name := strings.TrimSuffix(f.RelPath, path.Ext(f.RelPath))
		if rest, ok := strings.CutPrefix(name, PartialsDir+"/"); ok {
			s.partials[rest] = &Template{Name: rest, Path: f.Path, Source: string(f.Data), Hash: f.Hash}
			continue
		}

		t := &Template{Name: name, Path: f.Path, Hash: f.Hash}
		doc, err := frontmatter.Parse(f.Data)
		var meta content.Metadata
		if err == nil {
			meta, err = content.MetadataFromNode(doc.Header)
		}
		if err != nil {
			t.Err = ferrors.TemplateError(ferrors.TemplateSyntaxErrorKind, "layout header cannot be parsed").
				WithCause(err).
				WithContext("template", f.Path).
				Build()
			t.Source = string(f.Data)
		} else {
			t.Source = doc.Body
			t.Parent = strings.TrimSpace(meta.Layout())
		}
		s.layouts[name] = t
	}
	return s
}

// Has reports whether a layout exists.
func (s *Set) Has(name string) bool {
	_, ok := s.layouts[name]
	return ok
}

// Layout returns a layout by name.
func (s *Set) Layout(name string) (*Template, bool) {
	t, ok := s.layouts[name]
	return t, ok
}

// Partial returns a partial by name.
func (s *Set) Partial(name string) (*Template, bool) {
	t, ok := s.partials[name]
	return t, ok
}

// Names returns the sorted layout names.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.layouts))
	for name := range s.layouts {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// PartialNames returns the sorted partial names.
func (s *Set) PartialNames() []string {
	out := make([]string, 0, len(s.partials))
	for name := range s.partials {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Chain resolves the layout chain for name from innermost to outermost.
//
// The walk keeps a visited set: revisiting a layout fails with
// CircularLayoutKind and the cycle path (e.g. "a -> b -> a"); a parent that
// does not exist fails with MissingLayoutKind.
func (s *Set) Chain(name string) ([]*Template, error) {
	var chain []*Template
	visited := map[string]int{}
	current := name
	for current != "" {
		if idx, seen := visited[current]; seen {
			cycle := make([]string, 0, len(chain)-idx+1)
			for _, t := range chain[idx:] {
				cycle = append(cycle, t.Name)
			}
			cycle = append(cycle, current)
			return nil, ferrors.TemplateError(ferrors.CircularLayoutKind, "layout inheritance cycle: "+strings.Join(cycle, " -> ")).
				WithContext("layout", name).
				WithContext("cycle", cycle).
				Build()
		}
		t, ok := s.layouts[current]
		if !ok {
			msg := "layout " + current + " does not exist"
			if len(chain) > 0 {
				msg = "layout " + chain[len(chain)-1].Name + " extends missing layout " + current
			}
			return nil, ferrors.TemplateError(ferrors.MissingLayoutKind, msg).
				WithContext("layout", current).
				Build()
		}
		visited[current] = len(chain)
		chain = append(chain, t)
		current = t.Parent
	}
	return chain, nil
}

// Validate walks every layout chain before any rendering and returns the
// first inheritance cycle found, promoted to a fatal error. Missing parents
// are left to surface per entity at render time.
func (s *Set) Validate() error {
	for _, name := range s.Names() {
		if _, err := s.Chain(name); err != nil && ferrors.IsKind(err, ferrors.CircularLayoutKind) {
			ce, _ := ferrors.AsClassified(err)
			return ce.WithSeverity(ferrors.SeverityFatal)
		}
	}
	return nil
}

// Fingerprint identifies the set's membership: the sorted layout and
// partial names. Content edits do not change it.
func (s *Set) Fingerprint() string {
	return strings.Join(s.Names(), ",") + "|" + strings.Join(s.PartialNames(), ",")
}
