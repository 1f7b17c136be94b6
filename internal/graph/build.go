package graph

import (
	"cmp"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Default permalink patterns.
const (
	DefaultPagePermalink       = "/:path/"
	DefaultCollectionPermalink = "/:collection/:slug/"
	DefaultTermPermalink       = "/:taxonomy/:term/"
)

// CollectionConfig defines a configured collection of posts.
type CollectionConfig struct {
	Name          string
	Dir           string
	Permalink     string
	Layout        string
	Paginate      int
	ListLayout    string
	ListPermalink string
}

// TaxonomyConfig defines a metadata key whose values group entities into terms.
type TaxonomyConfig struct {
	Name      string
	Permalink string
	Layout    string // term pages are produced only when set
}

// LayoutChecker answers whether a layout name exists.
type LayoutChecker interface {
	Has(name string) bool
}

// Options configures Build.
type Options struct {
	Site          Site
	PagePermalink string
	DefaultLayout string
	Collections   []CollectionConfig
	Taxonomies    []TaxonomyConfig
	Layouts       LayoutChecker
	Drafts        bool
	Future        bool
	Now           time.Time
}

// Build converts documents into a Graph. It sorts its input first, so the
// result does not depend on discovery order. The returned error is always
// fatal (DuplicatePermalinkKind); entity-scoped problems are collected in
// Graph.Failures.
func Build(docs []*content.Document, opts Options) (*Graph, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.PagePermalink == "" {
		opts.PagePermalink = DefaultPagePermalink
	}

	sorted := slices.Clone(docs)
	slices.SortFunc(sorted, func(a, b *content.Document) int { return strings.Compare(a.Path, b.Path) })

	g := &Graph{
		Site:         opts.Site,
		entities:     map[string]*Entity{},
		collections:  map[string]*Collection{},
		taxonomies:   map[string][]string{},
		fingerprints: map[string]string{},
	}
	collCfg := map[string]CollectionConfig{}
	for _, c := range opts.Collections {
		collCfg[c.Name] = c
	}

	for _, doc := range sorted {
		e, err := newEntity(doc, collCfg[doc.Collection], opts)
		if err != nil {
			if ferrors.HasSeverity(err, ferrors.SeverityWarning) {
				g.Warnings = append(g.Warnings, err)
			} else {
				g.Failures = append(g.Failures, err)
			}
			continue
		}
		g.add(e)
		if e.Err != nil {
			// Failing entities write no artifact, so nothing may list or link to them.
			continue
		}
		g.member(e, e.Collection, "", "")
		for _, tax := range opts.Taxonomies {
			for _, term := range e.Meta()[tax.Name].Strings() {
				if slug := Slugify(term); slug != "" {
					g.member(e, tax.Name+"/"+slug, tax.Name, term)
				}
			}
		}
	}

	for _, c := range g.collections {
		sortByDateDesc(g, c.Items)
	}
	for tax, terms := range g.taxonomies {
		slices.Sort(terms)
		g.taxonomies[tax] = slices.Compact(terms)
	}
	g.linkNeighbors(opts.Collections)

	if err := g.addListPages(opts); err != nil {
		return nil, err
	}
	g.addTermPages(opts)

	slices.Sort(g.order)
	for _, id := range g.order {
		slices.Sort(g.entities[id].Memberships)
	}

	if err := g.checkPermalinks(); err != nil {
		return nil, err
	}
	g.computeFingerprints()
	return g, nil
}

func newEntity(doc *content.Document, coll CollectionConfig, opts Options) (*Entity, error) {
	meta := doc.Meta
	if !meta.Published() {
		return nil, skipped(doc, "document is unpublished")
	}
	if meta.Draft() && !opts.Drafts {
		return nil, skipped(doc, "draft skipped")
	}

	name := doc.Name()
	fileDate, slugBase, _ := splitDatedName(name)

	date, hasDate, err := meta.Date()
	if err != nil {
		return nil, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "date cannot be parsed").
			WithCause(err).
			WithContext("path", doc.Path).
			Build()
	}
	if !hasDate && fileDate != "" {
		date, _ = content.ParseDate(fileDate)
		hasDate = true
	}
	if hasDate && date.After(opts.Now) && !opts.Future {
		return nil, skipped(doc, "future-dated document skipped")
	}

	slug := meta.Slug()
	if slug == "" {
		slug = Slugify(slugBase)
	}
	title := meta.Title()
	if title == "" {
		title = TitleFromName(name)
	}

	e := &Entity{
		ID:       doc.Path,
		Kind:     EntityPage,
		Doc:      doc,
		Title:    title,
		Slug:     slug,
		Date:     date,
		HasDate:  hasDate,
		MetaHash: doc.MetaHash,
	}

	pattern := opts.PagePermalink
	e.Collection = PagesCollection
	if doc.Collection != "" {
		e.Kind = EntityPost
		e.Collection = doc.Collection
		pattern = cmp.Or(coll.Permalink, DefaultCollectionPermalink)
	}

	docPath := strings.TrimSuffix(doc.RelPath, path.Ext(doc.RelPath))
	if name == "index" {
		docPath = doc.Dir()
	}
	if explicit := meta.Permalink(); explicit != "" {
		e.Permalink = normalizePermalink(explicit)
	} else {
		e.Permalink = expandPermalink(pattern, permalinkVars{
			date:       date,
			hasDate:    hasDate,
			slug:       slug,
			title:      title,
			collection: doc.Collection,
			path:       docPath,
			name:       slugBase,
			categories: meta.Categories(),
		})
	}
	e.OutputPath = OutputPath(e.Permalink)

	requested := meta.Layout()
	if requested == "" {
		requested = coll.Layout
	}
	switch {
	case requested != "":
		e.Layout = requested
		if opts.Layouts == nil || !opts.Layouts.Has(requested) {
			e.Err = unknownLayout(doc.Path, requested)
		}
	case opts.DefaultLayout != "" && opts.Layouts != nil && opts.Layouts.Has(opts.DefaultLayout):
		e.Layout = opts.DefaultLayout
	}
	return e, nil
}

func (g *Graph) add(e *Entity) {
	g.entities[e.ID] = e
	g.order = append(g.order, e.ID)
	if e.Err != nil {
		g.Failures = append(g.Failures, e.Err)
	}
}

func (g *Graph) member(e *Entity, name, taxonomy, title string) {
	c, ok := g.collections[name]
	if !ok {
		c = &Collection{Name: name, Taxonomy: taxonomy, Title: title}
		g.collections[name] = c
		if taxonomy != "" {
			g.taxonomies[taxonomy] = append(g.taxonomies[taxonomy], name)
		}
	}
	c.Items = append(c.Items, e.ID)
	e.Memberships = append(e.Memberships, name)
}

// linkNeighbors sets Prev (older) and Next (newer) within each configured collection.
func (g *Graph) linkNeighbors(configs []CollectionConfig) {
	for _, cfg := range configs {
		c, ok := g.collections[cfg.Name]
		if !ok {
			continue
		}
		for i, id := range c.Items {
			e := g.entities[id]
			if i+1 < len(c.Items) {
				e.Prev = c.Items[i+1]
			}
			if i > 0 {
				e.Next = c.Items[i-1]
			}
		}
	}
}

func (g *Graph) addListPages(opts Options) error {
	for _, cfg := range opts.Collections {
		if cfg.Paginate <= 0 || cfg.ListLayout == "" {
			continue
		}
		var items []string
		if c, ok := g.collections[cfg.Name]; ok {
			items = c.Items
		}
		total := max(1, (len(items)+cfg.Paginate-1)/cfg.Paginate)
		pattern := cmp.Or(cfg.ListPermalink, "/:collection/")
		if first := listPermalink(pattern, cfg.Name, 1); !strings.HasSuffix(first, "/") {
			return ferrors.ConfigError("list permalink must be a directory path").
				WithContext("collection", cfg.Name).
				WithContext("permalink", pattern).
				Build()
		}

		for n := 1; n <= total; n++ {
			lo := min((n-1)*cfg.Paginate, len(items))
			hi := min(n*cfg.Paginate, len(items))
			e := &Entity{
				ID:     listID(cfg.Name, n),
				Kind:   EntityList,
				Title:  TitleFromName(cfg.Name),
				Layout: cfg.ListLayout,
				List: &ListPage{
					Collection: cfg.Name,
					Number:     n,
					Total:      total,
					Items:      slices.Clone(items[lo:hi]),
				},
			}
			e.Permalink = listPermalink(pattern, cfg.Name, n)
			if n > 1 {
				e.List.PrevID = listID(cfg.Name, n-1)
			}
			if n < total {
				e.List.NextID = listID(cfg.Name, n+1)
			}
			e.OutputPath = OutputPath(e.Permalink)
			if opts.Layouts == nil || !opts.Layouts.Has(cfg.ListLayout) {
				e.Err = unknownLayout(e.ID, cfg.ListLayout)
			}
			g.add(e)
		}
	}
	return nil
}

func (g *Graph) addTermPages(opts Options) {
	for _, tax := range opts.Taxonomies {
		if tax.Layout == "" {
			continue
		}
		pattern := cmp.Or(tax.Permalink, DefaultTermPermalink)
		pattern = strings.ReplaceAll(pattern, ":taxonomy", tax.Name)
		for _, name := range g.taxonomies[tax.Name] {
			c := g.collections[name]
			e := &Entity{
				ID:     "term:" + name,
				Kind:   EntityTerm,
				Title:  c.Title,
				Slug:   strings.TrimPrefix(name, tax.Name+"/"),
				Layout: tax.Layout,
				List: &ListPage{
					Collection: name,
					Number:     1,
					Total:      1,
					Items:      slices.Clone(c.Items),
				},
			}
			e.Permalink = expandPermalink(pattern, permalinkVars{term: e.Slug, slug: e.Slug, title: c.Title})
			e.OutputPath = OutputPath(e.Permalink)
			if opts.Layouts == nil || !opts.Layouts.Has(tax.Layout) {
				e.Err = unknownLayout(e.ID, tax.Layout)
			}
			g.add(e)
		}
	}
}

// checkPermalinks enforces that no two entities write the same output file.
func (g *Graph) checkPermalinks() error {
	seen := make(map[string]string, len(g.order))
	for _, id := range g.order {
		e := g.entities[id]
		if other, dup := seen[e.OutputPath]; dup {
			first := g.entities[other].Source()
			return ferrors.ContentError(ferrors.DuplicatePermalinkKind,
				fmt.Sprintf("permalink %s is produced by both %s and %s", e.Permalink, first, e.Source())).
				Fatal().
				WithContext("permalink", e.Permalink).
				WithContext("paths", []string{first, e.Source()}).
				Build()
		}
		seen[e.OutputPath] = id
	}
	return nil
}

func listID(collection string, n int) string {
	return "list:" + collection + ":" + strconv.Itoa(n)
}

func skipped(doc *content.Document, msg string) error {
	return ferrors.ContentError(ferrors.SkippedDocumentKind, msg).
		Warning().
		WithContext("path", doc.Path).
		Build()
}

func unknownLayout(source, name string) error {
	return ferrors.ContentError(ferrors.UnknownLayoutKind, "layout "+name+" does not exist").
		WithContext("path", source).
		WithContext("layout", name).
		Build()
}
