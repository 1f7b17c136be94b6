package build

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// stageRender renders the planned artifacts in parallel. A failed render
// is recorded against its entity and the rest of the build continues.
func stageRender(ctx context.Context, bs *buildState) error {
	md := markdown.New(markdown.Options{
		Unsafe:   bs.b.cfg.Markdown.Unsafe,
		Sanitize: bs.b.cfg.Markdown.Sanitize,
	})
	engine := render.NewEngine(bs.layouts, bs.data, md, render.WithLogger(bs.logger))

	entities := make([]*graph.Entity, 0, len(bs.plan.Render))
	for _, id := range bs.plan.Render {
		if e, ok := bs.graph.Entity(id); ok {
			entities = append(entities, e)
		}
	}

	type outcome struct {
		res render.Result
		err error
	}
	results := parallel(ctx, bs.b.cfg.Build.Workers, entities, func(ctx context.Context, e *graph.Entity) outcome {
		res, err := engine.Render(ctx, e, bs.graph)
		return outcome{res, err}
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, r := range results {
		e := entities[i]
		if r.err != nil {
			bs.report.AddFailure(StageRendering, r.err)
			bs.failed = append(bs.failed, e.ID)
			bs.logger.Warn("Render failed", logfields.Artifact(e.ID), logfields.Path(e.Source()), logfields.Error(r.err))
			continue
		}
		bs.rendered = append(bs.rendered, rendered{entity: e, html: r.res.HTML, deps: r.res.Deps})
	}
	bs.report.Rendered = len(bs.rendered)
	return nil
}
