package build

import (
	"context"
	"io/fs"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/linkverify"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// stageWrite brings the output tree in line with the graph: it removes
// outputs nothing produces any more, writes rendered artifacts whose bytes
// changed, mirrors static files and finalizes the dependency state.
func stageWrite(ctx context.Context, bs *buildState) error {
	failed := sets.New(bs.failed...)
	live := sets.New[string]()
	for _, e := range bs.graph.Renderable() {
		if !failed.Has(e.ID) {
			live.Add(e.OutputPath)
		}
	}

	if err := removeOutdated(bs, live); err != nil {
		return err
	}

	type written struct {
		hash    string
		changed bool
		err     error
	}
	results := parallel(ctx, bs.b.cfg.Build.Workers, bs.rendered, func(_ context.Context, r rendered) written {
		hash := hashBytes(r.html)
		if bs.out.unchanged(r.entity.OutputPath, hash) {
			return written{hash: hash}
		}
		return written{hash: hash, changed: true, err: bs.out.write(r.entity.OutputPath, r.html)}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, w := range results {
		r := bs.rendered[i]
		if w.err != nil {
			bs.report.AddFailure(StageWriting, w.err)
			bs.tracker.Forget(r.entity.ID)
			continue
		}
		bs.tracker.Record(r.entity, bs.graph, r.deps, w.hash)
		if w.changed {
			bs.report.Written++
			bs.report.Changed = append(bs.report.Changed, r.entity.OutputPath)
		} else {
			bs.report.Unchanged++
		}
	}

	artifacts := sets.New[string]()
	for _, e := range bs.graph.Renderable() {
		artifacts.Add(e.OutputPath)
	}
	static := copyStatic(bs, artifacts)

	if bs.b.cfg.LinkCheckEnabled() {
		checkLinks(bs)
	}
	warnUnreferencedMetadata(bs)

	st := bs.tracker.State()
	st.ConfigHash = bs.report.ConfigHash
	st.LayoutSet = bs.layouts.Fingerprint()
	st.DataSet = dataSet(bs.data)
	st.Revision = bs.report.Revision
	st.Static = static
	bs.tracker.SetInputs(bs.inputs)

	slices.Sort(bs.report.Changed)
	return nil
}

// removeOutdated deletes the outputs of artifacts that are gone, failed or
// moved, unless another live artifact now owns the path.
func removeOutdated(bs *buildState, live sets.Set[string]) error {
	drop := func(key string) error {
		rec, ok := bs.tracker.Lookup(key)
		if !ok {
			return nil
		}
		bs.tracker.Forget(key)
		if live.Has(rec.OutputPath) {
			return nil
		}
		return removeOutput(bs, rec.OutputPath)
	}

	for _, key := range bs.plan.Stale {
		if err := drop(key); err != nil {
			return err
		}
	}
	for _, key := range bs.failed {
		if err := drop(key); err != nil {
			return err
		}
	}
	for _, r := range bs.rendered {
		rec, ok := bs.tracker.Lookup(r.entity.ID)
		if ok && rec.OutputPath != r.entity.OutputPath && !live.Has(rec.OutputPath) {
			if err := removeOutput(bs, rec.OutputPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func removeOutput(bs *buildState, rel string) error {
	if !bs.out.exists(rel) {
		return nil
	}
	if err := bs.out.remove(rel); err != nil {
		return err
	}
	bs.report.Removed++
	bs.report.Changed = append(bs.report.Changed, rel)
	bs.logger.Debug("Removed output", logfields.Path(rel))
	return nil
}

// copyStatic mirrors passthrough files into the output tree and returns the
// new static table. Rendered artifacts win over static files on the same
// path; among static files the first source in path order wins.
func copyStatic(bs *buildState, artifacts sets.Set[string]) map[string]deps.StaticRecord {
	prior := bs.tracker.State().Static
	next := make(map[string]deps.StaticRecord, len(bs.snap.Static))
	for _, src := range bs.snap.Static {
		target := src.RelPath
		if artifacts.Has(target) {
			bs.report.AddWarning(StageWriting, staticConflict(src.Path, target, "a rendered page"))
			continue
		}
		if first, ok := next[target]; ok {
			bs.report.AddWarning(StageWriting, staticConflict(src.Path, target, first.Source))
			continue
		}
		rec := deps.StaticRecord{Target: target, Source: src.Path, Hash: src.Hash}
		if old, ok := prior[target]; ok && old.Hash == src.Hash && bs.out.exists(target) {
			next[target] = rec
			continue
		}
		path := src.Path
		if err := bs.out.copyFrom(target, func() (fs.File, error) { return bs.b.inputs.Open(path) }); err != nil {
			bs.report.AddFailure(StageWriting, err)
			continue
		}
		next[target] = rec
		bs.report.StaticCopied++
		bs.report.Changed = append(bs.report.Changed, target)
	}

	for target := range prior {
		if _, ok := next[target]; ok || artifacts.Has(target) {
			continue
		}
		if !bs.out.exists(target) {
			continue
		}
		if err := bs.out.remove(target); err != nil {
			bs.report.AddFailure(StageWriting, err)
			continue
		}
		bs.report.StaticRemoved++
		bs.report.Changed = append(bs.report.Changed, target)
	}
	return next
}

func staticConflict(source, target, owner string) error {
	return ferrors.BuildError("static file skipped: output path already taken by "+owner).
		WithKind(ferrors.StaticConflictKind).
		Warning().
		WithContext("path", source).
		WithContext("target", target).
		Build()
}

// checkLinks reports internal links in this build's rendered pages that
// resolve to no output file.
func checkLinks(bs *buildState) {
	checker, err := linkverify.NewChecker(bs.b.cfg.BaseURL, bs.out.exists)
	if err != nil {
		bs.logger.Warn("Link check skipped", logfields.Error(err))
		return
	}
	for _, r := range bs.rendered {
		broken, err := checker.Check(r.entity.OutputPath, r.html)
		if err != nil {
			continue
		}
		for _, l := range broken {
			bs.report.AddWarning(StageWriting, ferrors.BuildError("broken internal link "+l.URL).
				WithKind(ferrors.BrokenLinkKind).
				Warning().
				WithContext("path", r.entity.Source()).
				WithContext("url", l.URL).
				Build())
		}
	}
}

// warnUnreferencedMetadata flags custom front matter keys that no template
// read in any recorded artifact. Templates that enumerate all params
// disable the check.
func warnUnreferencedMetadata(bs *buildState) {
	used := sets.New[string]()
	for _, rec := range bs.tracker.State().Artifacts {
		for _, p := range rec.Params {
			used.Add(p)
		}
	}
	if used.Has(render.AllParams) {
		return
	}
	for _, e := range bs.graph.Renderable() {
		if e.Doc == nil {
			continue
		}
		var unused []string
		for _, key := range e.Doc.Meta.CustomKeys() {
			if !used.Has(key) {
				unused = append(unused, key)
			}
		}
		if len(unused) == 0 {
			continue
		}
		bs.report.AddWarning(StageWriting, ferrors.ContentError(ferrors.UnreferencedMetadataKind,
			"metadata not used by any template: "+strings.Join(unused, ", ")).
			Warning().
			WithContext("path", e.Doc.Path).
			Build())
	}
}
