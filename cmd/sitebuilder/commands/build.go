package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Incremental bool   `short:"i" help:"Rebuild only what changed since the last build"`
	Drafts      bool   `help:"Include draft documents"`
	Output      string `short:"o" help:"Output directory (overrides the configured one)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if b.Drafts {
		cfg.Build.Drafts = true
	}
	if b.Output != "" {
		out, err := filepath.Abs(b.Output)
		if err != nil {
			return ferrors.ValidationError("invalid output directory").WithCause(err).WithContext("path", b.Output).Build()
		}
		cfg.Output = out
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, g, cfg, b.Incremental)
}

// RunBuild runs one build, prints its summary and turns entity failures
// into exit code 1.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config, incremental bool) error {
	sess, err := newSession(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	printf(g, "Building %s\n", cfg.Title)
	report, err := sess.builder.Build(ctx, build.Request{Incremental: incremental})
	if report != nil {
		printf(g, "%s", report.Summary())
	}
	if err != nil {
		return err
	}
	if report.HasFailures() {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("build finished with %d failed document(s)", len(report.Failures))}
	}
	printf(g, "Site written to %s\n", cfg.OutputDir())
	return nil
}
