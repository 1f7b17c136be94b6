package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/devserver"
)

// ServeCmd runs the dev server until interrupted.
type ServeCmd struct {
	Host         string `help:"Interface to bind (overrides serve.host)"`
	Port         int    `short:"p" help:"Port to listen on (overrides serve.port)"`
	Drafts       bool   `help:"Include draft documents"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable live reload and script injection"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.Drafts {
		cfg.Build.Drafts = true
	}
	if s.NoLiveReload {
		off := false
		cfg.Serve.LiveReload = &off
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := newSession(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	opts := []devserver.Option{
		devserver.WithLogger(g.Logger),
		devserver.WithClassifier(sess.builder.Inputs().Classify),
	}
	if sess.registry != nil {
		opts = append(opts, devserver.WithMetrics(sess.registry, sess.recorder))
	}
	printf(g, "Serving %s at http://%s/ (Ctrl+C to stop)\n", cfg.Title, cfg.Addr())
	return devserver.New(cfg, sess.builder, opts...).Run(ctx)
}
