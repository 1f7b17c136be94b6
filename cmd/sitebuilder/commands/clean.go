package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CleanCmd removes generated output and build state.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := newSession(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.builder.Clean(ctx); err != nil {
		return err
	}
	printf(g, "Removed %s\n", cfg.OutputDir())
	return nil
}
