package render

import (
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// AllParams is recorded when a template reads the whole parameter map.
const AllParams = graph.AllKeys

// Deps is what one render touched: input files (document, layouts,
// partials, data), graph views and metadata parameter keys.
type Deps struct {
	Files  sets.Set[string]
	Views  sets.Set[string]
	Params sets.Set[string]
}

// NewDeps returns an empty dependency set.
func NewDeps() Deps {
	return Deps{Files: sets.New[string](), Views: sets.New[string](), Params: sets.New[string]()}
}
