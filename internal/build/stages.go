package build

import (
	"context"
	"errors"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in pipeline order.
const (
	StageDiscovering   StageName = "discovering"
	StageParsing       StageName = "parsing"
	StageGraphBuilding StageName = "graph_building"
	StageRendering     StageName = "rendering"
	StageWriting       StageName = "writing"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *buildState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

func defaultStages() []StageDef {
	return []StageDef{
		{StageDiscovering, stageDiscover},
		{StageParsing, stageParse},
		{StageGraphBuilding, stageGraph},
		{StageRendering, stageRender},
		{StageWriting, stageWrite},
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first error. Stage functions return only fatal errors; entity-scoped
// problems go to the report.
func runStages(ctx context.Context, bs *buildState, stages []StageDef) error {
	for _, st := range stages {
		bs.current = st.Name
		if err := ctx.Err(); err != nil {
			bs.report.StageResults[st.Name] = metrics.ResultCanceled
			bs.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return stageAbort(st.Name, err)
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.report.StageDurations[st.Name] = dur
		bs.recorder.ObserveStageDuration(string(st.Name), dur)
		bs.logger.Debug("Stage complete", logfields.Stage(string(st.Name)), logfields.DurationMS(float64(dur.Milliseconds())))

		result := metrics.ResultSuccess
		switch {
		case err != nil && ctx.Err() != nil:
			result = metrics.ResultCanceled
			err = stageAbort(st.Name, ctx.Err())
		case err != nil:
			result = metrics.ResultFatal
		case bs.report.stageHasIssues(st.Name):
			result = metrics.ResultWarning
		}
		bs.report.StageResults[st.Name] = result
		bs.recorder.IncStageResult(string(st.Name), result)

		if err != nil {
			return err
		}
	}
	return nil
}

// stageAbort converts a context error into the build's fatal error: a
// deadline becomes BuildTimeoutKind, a cancellation stays a runtime error.
func stageAbort(stage StageName, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ferrors.BuildError("build exceeded its timeout").
			WithKind(ferrors.BuildTimeoutKind).
			WithCause(err).
			WithContext("stage", string(stage)).
			Build()
	}
	return ferrors.RuntimeError("build canceled").
		WithCause(err).
		WithContext("stage", string(stage)).
		Build()
}
