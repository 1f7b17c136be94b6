package build

import (
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// buildState is the mutable context of one build run, threaded through the
// stages. Only the stage goroutine touches it; workers return values.
type buildState struct {
	b        *Builder
	req      Request
	report   *Report
	logger   *slog.Logger
	recorder metrics.Recorder
	out      outputWriter
	prior    *deps.State
	current  StageName

	snap    *content.Snapshot
	docs    []*content.Document
	data    []content.DataFile
	layouts *layout.Set
	inputs  map[string]string // change-detection hash per input path

	graph   *graph.Graph
	tracker *deps.Tracker
	plan    deps.Plan

	rendered []rendered
	failed   []string // keys whose render failed
}

// rendered is the output of one successful render, waiting to be written.
type rendered struct {
	entity *graph.Entity
	html   []byte
	deps   render.Deps
}
