// Package graph assembles parsed documents into the immutable content graph:
// entities with resolved permalinks and layouts, ordered collections,
// neighbor links, taxonomy terms and pagination pages.
package graph

import (
	"cmp"
	"slices"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// PagesCollection holds every published document outside a configured collection.
const PagesCollection = "pages"

// EntityKind classifies graph entities.
type EntityKind string

const (
	EntityPage EntityKind = "page"
	EntityPost EntityKind = "post"
	EntityList EntityKind = "list"
	EntityTerm EntityKind = "term"
)

// Entity is one renderable node of the graph. Its ID doubles as the artifact key.
type Entity struct {
	ID          string
	Kind        EntityKind
	Doc         *content.Document // nil for list and term entities
	Title       string
	Slug        string
	Date        time.Time
	HasDate     bool
	Permalink   string
	OutputPath  string
	Layout      string // "" renders the body without a layout
	Collection  string // ordering collection for neighbors
	Memberships []string
	Prev, Next  string // entity IDs, Prev is older
	List        *ListPage
	MetaHash    string
	// Err is the entity-scoped failure that keeps it from rendering.
	Err error
}

// Source is the document path for content entities and the ID otherwise.
func (e *Entity) Source() string {
	if e.Doc != nil {
		return e.Doc.Path
	}
	return e.ID
}

// Meta returns the document metadata, empty for synthetic entities.
func (e *Entity) Meta() content.Metadata {
	if e.Doc == nil {
		return content.Metadata{}
	}
	return e.Doc.Meta
}

// ListPage describes one page of a paginated collection or a term page.
type ListPage struct {
	Collection string
	Number     int // 1-based
	Total      int
	Items      []string
	PrevID     string
	NextID     string
}

// Collection is a named, ordered group of entity IDs, newest first.
type Collection struct {
	Name     string
	Title    string // display name for taxonomy terms
	Taxonomy string // owning taxonomy, "" otherwise
	Items    []string
}

// Site is the global, read-only data every template may consult.
type Site struct {
	Title    string
	BaseURL  string
	Params   content.Value
	Revision string
}

// Graph is the immutable content graph of one build. It is safe for
// concurrent reads once returned by Build.
type Graph struct {
	Site         Site
	entities     map[string]*Entity
	order        []string
	collections  map[string]*Collection
	taxonomies   map[string][]string
	fingerprints map[string]string
	// Failures are entity-scoped errors (UnknownLayout, bad metadata).
	Failures []error
	// Warnings are non-blocking notices such as skipped drafts.
	Warnings []error
}

// Entity returns an entity by ID.
func (g *Graph) Entity(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// IDs returns every entity ID in sorted order.
func (g *Graph) IDs() []string { return slices.Clone(g.order) }

// Entities returns every entity in ID order.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id])
	}
	return out
}

// Renderable returns the entities without an entity-scoped failure, in ID order.
func (g *Graph) Renderable() []*Entity {
	var out []*Entity
	for _, id := range g.order {
		if e := g.entities[id]; e.Err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Collection returns a collection by name.
func (g *Graph) Collection(name string) (*Collection, bool) {
	c, ok := g.collections[name]
	return c, ok
}

// CollectionNames returns all collection names sorted.
func (g *Graph) CollectionNames() []string {
	out := make([]string, 0, len(g.collections))
	for name := range g.collections {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Terms returns the term collection names of a taxonomy, sorted.
func (g *Graph) Terms(taxonomy string) []string {
	return slices.Clone(g.taxonomies[taxonomy])
}

func sortByDateDesc(g *Graph, ids []string) {
	slices.SortStableFunc(ids, func(a, b string) int {
		ea, eb := g.entities[a], g.entities[b]
		if c := ea.Date.Compare(eb.Date); c != 0 {
			return -c
		}
		return cmp.Compare(ea.Source(), eb.Source())
	})
}
