package build

import (
	"context"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// stageDiscover scans the site inputs and resolves the source revision.
func stageDiscover(ctx context.Context, bs *buildState) error {
	snap, err := bs.b.inputs.Scan(ctx)
	if err != nil {
		return err
	}
	bs.snap = snap
	bs.report.Documents = len(snap.Documents)

	rev, err := bs.b.revision(bs.b.cfg.Root())
	if err != nil {
		bs.report.AddWarning(StageDiscovering, ferrors.StateError("source revision unavailable").WithCause(err).Warning().Build())
	}
	bs.report.Revision = rev
	if rev != "" {
		bs.logger = bs.logger.With(logfields.Revision(rev))
	}
	return nil
}
