// Package commands holds the sitebuilder CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// LogLevelEnv overrides the log level from the configuration file.
const LogLevelEnv = "SITEBUILDER_LOG_LEVEL"

// stateDBName is the SQLite build state database inside the state directory.
const stateDBName = "state.db"

// Global is shared state handed to every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml" env:"SITEBUILDER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site into the output directory"`
	Serve ServeCmd `cmd:"" help:"Serve the site with file watching and live reload"`
	Clean CleanCmd `cmd:"" help:"Remove the output directory and build state"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration and starter layouts"`
}

// AfterApply runs after flag parsing and installs the initial logger.
// nolint:unparam // kong hook signature.
func (c *CLI) AfterApply(g *Global) error {
	if g.Stdout == nil {
		g.Stdout = os.Stdout
	}
	g.Logger = newLogger(os.Stderr, levelFor(c.Verbose, ""), config.LogFormatText)
	slog.SetDefault(g.Logger)
	return nil
}

// ExitError ends the process with Code after printing its message.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// levelFor resolves the log level: -v wins, then the environment, then
// the configured level.
func levelFor(verbose bool, configured config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		return config.NormalizeLogLevel(env).Slog()
	}
	if configured != "" {
		return configured.Slog()
	}
	return slog.LevelInfo
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration and reinstalls the logger with its
// logging settings.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = newLogger(os.Stderr, levelFor(c.Verbose, cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// session bundles a builder with the resources it owns.
type session struct {
	builder  *build.Builder
	registry *prometheus.Registry
	recorder metrics.Recorder
	closers  []io.Closer
}

func (r *session) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

// newSession wires the builder with persistent state, metrics and
// notifications as configured.
func newSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	rt := &session{recorder: metrics.NoopRecorder{}}
	opts := []build.Option{build.WithLogger(logger)}

	if err := os.MkdirAll(cfg.StateDir(), 0o750); err != nil {
		return nil, ferrors.FileSystemError("failed to create state directory").
			WithCause(err).WithContext("path", cfg.StateDir()).Build()
	}
	store, err := deps.NewSQLiteStore(filepath.Join(cfg.StateDir(), stateDBName))
	if err != nil {
		return nil, ferrors.StateError("failed to open build state").
			WithCause(err).WithContext("path", cfg.StateDir()).Build()
	}
	rt.closers = append(rt.closers, store)
	opts = append(opts, build.WithStateStore(store))

	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.recorder = metrics.NewPrometheusRecorder(rt.registry)
		opts = append(opts, build.WithRecorder(rt.recorder))
	}

	if cfg.Notify.NATSURL != "" {
		mode, _ := retry.Modes.Parse(cfg.Notify.Backoff)
		policy := retry.NewPolicy(mode, 0, 0, cfg.Notify.Retries)
		n, err := notify.NewNATS(cfg.Notify.NATSURL, cfg.Notify.Subject, policy, logger)
		if err != nil {
			// Notifications are optional; builds go on without them.
			logger.Warn("NATS notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			rt.closers = append(rt.closers, n)
			opts = append(opts, build.WithNotifier(n))
		}
	}

	rt.builder = build.New(cfg, opts...)
	return rt, nil
}

func printf(g *Global, format string, args ...any) {
	_, _ = fmt.Fprintf(g.Stdout, format, args...)
}
