package deps

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// DefaultFullRebuildRatio is the share of artifacts a single global input
// may be referenced by before a change to it forces a full rebuild.
const DefaultFullRebuildRatio = 0.5

// Tracker owns the dependency state of one build run. It is not safe for
// concurrent use: workers hand their results to a single merging goroutine.
type Tracker struct {
	state *State
}

// NewTracker starts a build run from a prior state (nil for none). The prior
// state is cloned and never mutated.
func NewTracker(prior *State) *Tracker {
	return &Tracker{state: prior.Clone()}
}

// State returns the tracker's current state.
func (t *Tracker) State() *State { return t.state }

// Record stores the dependencies of a freshly rendered artifact, capturing the
// fingerprint of every view it read from g.
func (t *Tracker) Record(e *graph.Entity, g *graph.Graph, d render.Deps, contentHash string) {
	views := make(map[string]string, d.Views.Len())
	for _, v := range sets.Sorted(d.Views) {
		views[v] = g.ViewFingerprint(e.ID, v)
	}
	t.state.Artifacts[e.ID] = &Record{
		Key:        e.ID,
		OutputPath: e.OutputPath,
		Hash:       contentHash,
		Inputs:     sets.Sorted(d.Files),
		Views:      views,
		Params:     sets.Sorted(d.Params),
	}
}

// Forget drops an artifact record.
func (t *Tracker) Forget(key string) {
	delete(t.state.Artifacts, key)
}

// Lookup returns the entry for key.
func (t *Tracker) Lookup(key string) (*Record, bool) {
	r, ok := t.state.Artifacts[key]
	return r, ok
}

// SetInputs replaces the input hash table.
func (t *Tracker) SetInputs(hashes map[string]string) {
	t.state.Inputs = hashes
}

// AffectedArtifacts returns the keys of next's renderable entities that must
// be re-rendered given the changed input paths:
//   - entities without a record (new, or failed last time),
//   - records whose inputs intersect changed,
//   - records whose output path moved,
//   - records that read a graph view (neighbors, a collection, a taxonomy,
//     the revision) whose fingerprint differs in next.
//
// The last rule captures indirect effects such as a new post changing the
// "next" link of the previously newest post.
func (t *Tracker) AffectedArtifacts(changed []string, next *graph.Graph) sets.Set[string] {
	changedSet := sets.New(changed...)
	out := sets.New[string]()
	for _, e := range next.Renderable() {
		r, ok := t.state.Artifacts[e.ID]
		switch {
		case !ok:
			out.Add(e.ID)
		case r.OutputPath != e.OutputPath:
			out.Add(e.ID)
		case slices.ContainsFunc(r.Inputs, changedSet.Has):
			out.Add(e.ID)
		default:
			for view, fp := range r.Views {
				if next.ViewFingerprint(e.ID, view) != fp {
					out.Add(e.ID)
					break
				}
			}
		}
	}
	return out
}

// Stale returns the keys of recorded artifacts that next will not produce:
// removed entities and entities that now fail.
func (t *Tracker) Stale(next *graph.Graph) []string {
	live := sets.New[string]()
	for _, e := range next.Renderable() {
		live.Add(e.ID)
	}
	var out []string
	for key := range t.state.Artifacts {
		if !live.Has(key) {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

// Plan is the outcome of change analysis for one build.
type Plan struct {
	Full   bool
	Reason string
	Render []string // sorted artifact keys to render
	Stale  []string // sorted artifact keys whose outputs must go
}

// PlanInput is what Plan compares against the tracker's prior state.
type PlanInput struct {
	Graph      *graph.Graph
	Inputs     map[string]string
	ConfigHash string
	LayoutSet  string
	DataSet    string
	Globals    sets.Set[string] // layout, partial and data paths
	Ratio      float64
}

// Plan decides between a full and an incremental rebuild. A full rebuild is
// chosen when there is no prior state, the configuration changed, a layout,
// partial or data file was added or removed, or a changed global input is
// referenced by more than Ratio of all artifacts.
func (t *Tracker) Plan(in PlanInput) Plan {
	ratio := in.Ratio
	if ratio <= 0 {
		ratio = DefaultFullRebuildRatio
	}
	all := func(reason string) Plan {
		var keys []string
		for _, e := range in.Graph.Renderable() {
			keys = append(keys, e.ID)
		}
		return Plan{Full: true, Reason: reason, Render: keys, Stale: t.Stale(in.Graph)}
	}

	prior := t.state
	switch {
	case prior.Empty():
		return all("no prior build state")
	case prior.ConfigHash != in.ConfigHash:
		return all("configuration changed")
	case prior.LayoutSet != in.LayoutSet:
		return all("layout or partial added or removed")
	case prior.DataSet != in.DataSet:
		return all("data file added or removed")
	}

	changed := ChangedPaths(prior.Inputs, in.Inputs)
	if total := len(prior.Artifacts); total > 0 {
		for _, p := range changed {
			if in.Globals == nil || !in.Globals.Has(p) {
				continue
			}
			refs := 0
			for _, r := range prior.Artifacts {
				if slices.Contains(r.Inputs, p) {
					refs++
				}
			}
			if float64(refs)/float64(total) > ratio {
				return all(fmt.Sprintf("global input %s is used by %d of %d artifacts", p, refs, total))
			}
		}
	}

	return Plan{
		Render: sets.Sorted(t.AffectedArtifacts(changed, in.Graph)),
		Stale:  t.Stale(in.Graph),
	}
}
