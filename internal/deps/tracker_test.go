package deps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

const postLayout = "layouts/post.html"

func postDoc(t *testing.T, slug, date, body string) *content.Document {
	t.Helper()
	rel := "posts/" + slug + ".md"
	doc, err := content.ParseDocument(content.SourceFile{
		Path:       "content/" + rel,
		RelPath:    rel,
		Collection: "posts",
		Data:       []byte("---\ntitle: " + slug + "\ndate: " + date + "\n---\n" + body + "\n"),
	})
	require.NoError(t, err)
	return doc
}

func buildGraph(t *testing.T, docs ...*content.Document) *graph.Graph {
	t.Helper()
	g, err := graph.Build(docs, graph.Options{
		Collections: []graph.CollectionConfig{{Name: "posts", Dir: "posts", Layout: "post"}},
		Layouts:     sets.New("post"),
		Now:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return g
}

func inputsOf(docs ...*content.Document) map[string]string {
	out := map[string]string{postLayout: "layout-v1"}
	for _, d := range docs {
		out[d.Path] = d.Hash
	}
	return out
}

// recordAll simulates a full build where every post reads its neighbors.
func recordAll(t *testing.T, g *graph.Graph, inputs map[string]string) *State {
	t.Helper()
	tr := NewTracker(nil)
	for _, e := range g.Renderable() {
		d := render.NewDeps()
		d.Files.Add(e.Source(), postLayout)
		d.Views.Add(graph.ViewNeighbors)
		tr.Record(e, g, d, "out-"+e.ID)
	}
	tr.SetInputs(inputs)
	tr.State().ConfigHash = "cfg"
	return tr.State()
}

func planFor(prior *State, g *graph.Graph, inputs map[string]string) Plan {
	return NewTracker(prior).Plan(PlanInput{
		Graph:      g,
		Inputs:     inputs,
		ConfigHash: "cfg",
		Globals:    sets.New(postLayout),
	})
}

func TestPlan_NoPriorStateIsFull(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	g := buildGraph(t, a)

	p := planFor(nil, g, inputsOf(a))
	assert.True(t, p.Full)
	assert.Equal(t, []string{a.Path}, p.Render)
}

func TestPlan_BodyEditRendersOnlyThatArtifact(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	b := postDoc(t, "b", "2025-02-01", "B")
	c := postDoc(t, "c", "2025-03-01", "C")
	prior := recordAll(t, buildGraph(t, a, b, c), inputsOf(a, b, c))

	b2 := postDoc(t, "b", "2025-02-01", "B edited")
	require.NotEqual(t, b.Hash, b2.Hash)
	p := planFor(prior, buildGraph(t, a, b2, c), inputsOf(a, b2, c))

	assert.False(t, p.Full)
	assert.Equal(t, []string{b2.Path}, p.Render)
	assert.Empty(t, p.Stale)
}

func TestPlan_NewNewestPostUpdatesPreviousNewest(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	b := postDoc(t, "b", "2025-02-01", "B")
	prior := recordAll(t, buildGraph(t, a, b), inputsOf(a, b))

	c := postDoc(t, "c", "2025-03-01", "C")
	p := planFor(prior, buildGraph(t, a, b, c), inputsOf(a, b, c))

	assert.False(t, p.Full)
	assert.Equal(t, []string{b.Path, c.Path}, p.Render)
}

func TestPlan_RemovedDocumentIsStale(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	b := postDoc(t, "b", "2025-02-01", "B")
	prior := recordAll(t, buildGraph(t, a, b), inputsOf(a, b))

	p := planFor(prior, buildGraph(t, a), inputsOf(a))
	assert.Equal(t, []string{b.Path}, p.Stale)
	// a lost its newer neighbor.
	assert.Equal(t, []string{a.Path}, p.Render)
}

func TestPlan_ConfigChangeIsFull(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	g := buildGraph(t, a)
	prior := recordAll(t, g, inputsOf(a))

	p := NewTracker(prior).Plan(PlanInput{Graph: g, Inputs: inputsOf(a), ConfigHash: "other"})
	assert.True(t, p.Full)
	assert.Equal(t, "configuration changed", p.Reason)
}

func TestPlan_LayoutSetChangeIsFull(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	g := buildGraph(t, a)
	prior := recordAll(t, g, inputsOf(a))

	p := NewTracker(prior).Plan(PlanInput{Graph: g, Inputs: inputsOf(a), ConfigHash: "cfg", LayoutSet: "post,list"})
	assert.True(t, p.Full)
}

func TestPlan_WidelyUsedGlobalChangeIsFull(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	b := postDoc(t, "b", "2025-02-01", "B")
	g := buildGraph(t, a, b)
	prior := recordAll(t, g, inputsOf(a, b))

	inputs := inputsOf(a, b)
	inputs[postLayout] = "layout-v2"
	p := planFor(prior, g, inputs)
	assert.True(t, p.Full)
	assert.Contains(t, p.Reason, postLayout)
}

func TestPlan_GlobalBelowRatioIsIncremental(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	b := postDoc(t, "b", "2025-02-01", "B")
	g := buildGraph(t, a, b)
	prior := recordAll(t, g, inputsOf(a, b))

	inputs := inputsOf(a, b)
	inputs[postLayout] = "layout-v2"
	p := NewTracker(prior).Plan(PlanInput{
		Graph:      g,
		Inputs:     inputs,
		ConfigHash: "cfg",
		Globals:    sets.New(postLayout),
		Ratio:      1,
	})
	assert.False(t, p.Full)
	assert.Equal(t, []string{a.Path, b.Path}, p.Render)
}

func TestTracker_DoesNotMutatePriorState(t *testing.T) {
	a := postDoc(t, "a", "2025-01-01", "A")
	g := buildGraph(t, a)
	prior := recordAll(t, g, inputsOf(a))

	tr := NewTracker(prior)
	tr.Forget(a.Path)
	_, ok := tr.Lookup(a.Path)
	assert.False(t, ok)
	assert.Contains(t, prior.Artifacts, a.Path)
}

func TestChangedPaths(t *testing.T) {
	prev := map[string]string{"a": "1", "b": "2", "c": "3"}
	next := map[string]string{"a": "1", "b": "9", "d": "4"}
	assert.Equal(t, []string{"b", "c", "d"}, ChangedPaths(prev, next))
	assert.Empty(t, ChangedPaths(prev, prev))
}
