package build

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// stageGraph validates layouts, builds the content graph and plans which
// artifacts this build renders. A layout cycle or a permalink collision
// stops the build before anything is rendered.
func stageGraph(_ context.Context, bs *buildState) error {
	if err := bs.layouts.Validate(); err != nil {
		return err
	}

	g, err := graph.Build(bs.docs, graphOptions(bs))
	if err != nil {
		return err
	}
	bs.graph = g
	for _, f := range g.Failures {
		bs.report.AddFailure(StageGraphBuilding, f)
	}
	for _, w := range g.Warnings {
		bs.report.AddWarning(StageGraphBuilding, w)
	}
	bs.report.Entities = len(g.Renderable())

	bs.inputs = inputHashes(bs.snap, bs.docs)
	bs.tracker = deps.NewTracker(bs.prior)
	plan := bs.tracker.Plan(deps.PlanInput{
		Graph:      g,
		Inputs:     bs.inputs,
		ConfigHash: bs.report.ConfigHash,
		LayoutSet:  bs.layouts.Fingerprint(),
		DataSet:    dataSet(bs.data),
		Globals:    globalInputs(bs.snap),
		Ratio:      bs.b.cfg.Build.FullRebuildRatio,
	})
	switch {
	case plan.Full && bs.req.Incremental:
		bs.recorder.IncFullRebuild(plan.Reason)
	case !plan.Full && !bs.req.Incremental:
		plan = deps.Plan{Full: true, Reason: "full build requested", Stale: plan.Stale}
		for _, e := range g.Renderable() {
			plan.Render = append(plan.Render, e.ID)
		}
	}
	bs.plan = plan

	bs.report.Mode = ModeIncremental
	if plan.Full {
		bs.report.Mode = ModeFull
		bs.report.FullReason = plan.Reason
	}
	bs.logger.Info("Build planned",
		logfields.BuildMode(string(bs.report.Mode)),
		logfields.Count(len(plan.Render)),
		slog.String("reason", plan.Reason))
	return nil
}

func graphOptions(bs *buildState) graph.Options {
	cfg := bs.b.cfg
	opts := graph.Options{
		Site: graph.Site{
			Title:    cfg.Title,
			BaseURL:  cfg.BaseURL,
			Params:   content.FromAny(cfg.Params),
			Revision: bs.report.Revision,
		},
		PagePermalink: cfg.Permalink,
		DefaultLayout: cfg.DefaultLayout,
		Layouts:       bs.layouts,
		Drafts:        cfg.Build.Drafts,
		Future:        cfg.Build.Future,
		Now:           bs.b.now(),
	}
	for _, c := range cfg.Collections {
		opts.Collections = append(opts.Collections, graph.CollectionConfig{
			Name:          c.Name,
			Dir:           c.Dir,
			Permalink:     c.Permalink,
			Layout:        c.Layout,
			Paginate:      c.Paginate,
			ListLayout:    c.ListLayout,
			ListPermalink: c.ListPermalink,
		})
	}
	for _, t := range cfg.Taxonomies {
		opts.Taxonomies = append(opts.Taxonomies, graph.TaxonomyConfig{
			Name:      t.Name,
			Permalink: t.Permalink,
			Layout:    t.Layout,
		})
	}
	return opts
}

// inputHashes keys change detection on the raw bytes of every input except
// parsed documents, which use their canonical fingerprint: reordering or
// reformatting a header does not count as a change.
func inputHashes(snap *content.Snapshot, docs []*content.Document) map[string]string {
	out := snap.Hashes()
	for _, d := range docs {
		if d.Fingerprint != "" {
			out[d.Path] = d.Fingerprint
		}
	}
	return out
}

// dataSet fingerprints data file membership.
func dataSet(files []content.DataFile) string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return strings.Join(names, ",")
}

// globalInputs are the inputs any artifact may read: layouts, partials and
// data files.
func globalInputs(snap *content.Snapshot) sets.Set[string] {
	out := sets.New[string]()
	for _, f := range snap.Layouts {
		out.Add(f.Path)
	}
	for _, f := range snap.Data {
		out.Add(f.Path)
	}
	return out
}
