package build

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// stageParse parses documents and data files. Documents whose content hash
// matches the previous build's are reused from the parse cache. A document
// that fails to parse is reported and left out of the graph; the build goes on.
func stageParse(ctx context.Context, bs *buildState) error {
	cache := make(map[string]*content.Document, len(bs.snap.Documents))
	var todo []content.SourceFile
	for _, src := range bs.snap.Documents {
		if doc, ok := bs.b.docs[src.Path]; ok && doc.Hash == src.Hash {
			cache[src.Path] = doc
			bs.docs = append(bs.docs, doc)
			bs.report.Reused++
			continue
		}
		todo = append(todo, src)
	}

	type parsed struct {
		doc *content.Document
		err error
	}
	results := parallel(ctx, bs.b.cfg.Build.Workers, todo, func(_ context.Context, src content.SourceFile) parsed {
		doc, err := content.ParseDocument(src)
		return parsed{doc, err}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, r := range results {
		if r.err != nil {
			bs.report.AddFailure(StageParsing, r.err)
			bs.logger.Warn("Document failed to parse", logfields.Path(todo[i].Path), logfields.Error(r.err))
			continue
		}
		cache[r.doc.Path] = r.doc
		bs.docs = append(bs.docs, r.doc)
		bs.report.Parsed++
	}
	bs.b.docs = cache

	for _, src := range bs.snap.Data {
		df, err := content.ParseData(src)
		if err != nil {
			bs.report.AddFailure(StageParsing, err)
			continue
		}
		bs.data = append(bs.data, df)
	}

	bs.layouts = layout.NewSet(bs.snap.Layouts)
	return nil
}
