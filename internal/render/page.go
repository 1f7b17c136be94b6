package render

import (
	"html/template"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
)

// Page is the data every template receives. Methods that read anything
// beyond the entity itself record what they read.
type Page struct {
	e       *graph.Entity
	rc      *renderCtx
	content template.HTML
	primary bool
}

func (rc *renderCtx) page(id string) *Page {
	e, ok := rc.g.Entity(id)
	if !ok {
		return nil
	}
	return &Page{e: e, rc: rc}
}

func (rc *renderCtx) pages(ids []string) []*Page {
	out := make([]*Page, 0, len(ids))
	for _, id := range ids {
		if p := rc.page(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (p *Page) Title() string     { return p.e.Title }
func (p *Page) Permalink() string { return p.e.Permalink }
func (p *Page) Slug() string      { return p.e.Slug }
func (p *Page) Kind() string      { return string(p.e.Kind) }
func (p *Page) Date() time.Time   { return p.e.Date }
func (p *Page) HasDate() bool     { return p.e.HasDate }

func (p *Page) Summary() string {
	p.reads(content.KeySummary)
	return p.e.Meta().Summary()
}

func (p *Page) Tags() []string {
	p.reads(content.KeyTags)
	return p.e.Meta().Tags()
}

func (p *Page) Categories() []string {
	p.reads(content.KeyCategories)
	return p.e.Meta().Categories()
}

// reads records a metadata key the template used. Keys read from any page
// other than the one being rendered also become a view on that page, so
// editing them re-renders this artifact and editing anything else does not.
func (p *Page) reads(key string) {
	p.rc.deps.Params.Add(key)
	if !p.primary {
		p.rc.deps.Views.Add(graph.ParamView(p.e.ID, key))
	}
}

// URL is the absolute URL built from the site base URL.
func (p *Page) URL() string {
	return trimSlash(p.rc.g.Site.BaseURL) + p.e.Permalink
}

// Content is the rendered body for the page being rendered (or the output
// of the inner layout), and the converted body for any other page.
func (p *Page) Content() (template.HTML, error) {
	if p.primary {
		return p.content, nil
	}
	if p.e.Doc != nil {
		p.rc.deps.Files.Add(p.e.Doc.Path)
	}
	return p.rc.body(p.e)
}

// Params returns every metadata value.
func (p *Page) Params() map[string]any {
	p.reads(AllParams)
	return p.e.Meta().Fields()
}

// Param returns one metadata value, or nil.
func (p *Page) Param(key string) any {
	p.reads(key)
	v, ok := p.e.Meta()[key]
	if !ok {
		return nil
	}
	return v.Interface()
}

// Prev is the next older entity in the page's collection.
func (p *Page) Prev() *Page {
	p.rc.deps.Views.Add(graph.ViewNeighbors)
	if p.e.Prev == "" {
		return nil
	}
	return p.rc.page(p.e.Prev)
}

// Next is the next newer entity in the page's collection.
func (p *Page) Next() *Page {
	p.rc.deps.Views.Add(graph.ViewNeighbors)
	if p.e.Next == "" {
		return nil
	}
	return p.rc.page(p.e.Next)
}

// Collection returns the ordered members of a collection, newest first.
func (p *Page) Collection(name string) []*Page {
	p.rc.deps.Views.Add(graph.CollectionView(name))
	c, ok := p.rc.g.Collection(name)
	if !ok {
		return nil
	}
	return p.rc.pages(c.Items)
}

// Term is one value of a taxonomy with its pages.
type Term struct {
	Name      string
	Slug      string
	Permalink string
	Pages     []*Page
}

// Terms returns the terms of a taxonomy in slug order.
func (p *Page) Terms(taxonomy string) []Term {
	p.rc.deps.Views.Add(graph.TaxonomyView(taxonomy))
	var out []Term
	for _, name := range p.rc.g.Terms(taxonomy) {
		c, _ := p.rc.g.Collection(name)
		t := Term{Name: c.Title, Slug: name[len(taxonomy)+1:], Pages: p.rc.pages(c.Items)}
		if te, ok := p.rc.g.Entity("term:" + name); ok {
			t.Permalink = te.Permalink
		}
		out = append(out, t)
	}
	return out
}

// Paginator is the page of items a list or term entity renders.
type Paginator struct {
	Items   []*Page
	Number  int
	Total   int
	PrevURL string
	NextURL string
}

// Paginator returns nil for entities that are not list pages.
func (p *Page) Paginator() *Paginator {
	l := p.e.List
	if l == nil {
		return nil
	}
	p.rc.deps.Views.Add(graph.CollectionView(l.Collection))
	pg := &Paginator{Items: p.rc.pages(l.Items), Number: l.Number, Total: l.Total}
	if prev := p.rc.page(l.PrevID); prev != nil {
		pg.PrevURL = prev.e.Permalink
	}
	if next := p.rc.page(l.NextID); next != nil {
		pg.NextURL = next.e.Permalink
	}
	return pg
}

// Data returns a shared data file by name, or nil when none exists.
func (p *Page) Data(name string) any {
	df, ok := p.rc.eng.data[name]
	if !ok {
		return nil
	}
	p.rc.deps.Files.Add(df.Path)
	return df.Value.Interface()
}

// Site exposes global site information.
func (p *Page) Site() *Site { return &Site{rc: p.rc} }

// Partial renders a named partial with the current page as data.
func (p *Page) Partial(name string) (template.HTML, error) {
	return p.PartialWith(name, p)
}

// PartialWith renders a named partial with arbitrary data.
func (p *Page) PartialWith(name string, data any) (template.HTML, error) {
	rc := p.rc
	c, ok := rc.eng.partials[name]
	if !ok {
		return "", rc.fail(ferrors.TemplateError(ferrors.MissingPartialKind, "partial "+name+" does not exist").
			WithContext("partial", name).
			Build())
	}
	rc.deps.Files.Add(c.path)
	if c.err != nil {
		return "", rc.fail(c.err)
	}
	if rc.depth >= maxPartialDepth {
		return "", rc.fail(ferrors.TemplateError(ferrors.TemplateExecutionKind, "partials nested too deeply").
			WithContext("partial", name).
			Build())
	}
	rc.depth++
	defer func() { rc.depth-- }()

	out, err := rc.execute(c, data)
	if err != nil {
		return "", rc.fail(err)
	}
	return template.HTML(out), nil //nolint:gosec // output of html/template is already escaped
}

// Site is the template view of global site data.
type Site struct {
	rc *renderCtx
}

func (s *Site) Title() string   { return s.rc.g.Site.Title }
func (s *Site) BaseURL() string { return s.rc.g.Site.BaseURL }

// Params returns the global parameters from the site configuration.
func (s *Site) Params() map[string]any {
	m, _ := s.rc.g.Site.Params.Interface().(map[string]any)
	return m
}

// Revision is the source revision the site was built from.
func (s *Site) Revision() string {
	s.rc.deps.Views.Add(graph.ViewRevision)
	return s.rc.g.Site.Revision
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
