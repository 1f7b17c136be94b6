package build

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
)

// Request parameterizes one build.
type Request struct {
	// Incremental lets the tracker limit work to affected artifacts.
	Incremental bool
	// Changed lists the paths that triggered the build. Change detection
	// itself compares content hashes; this is logged only.
	Changed []string
}

// Builder runs builds for one site. Builds are serialized: a Builder never
// runs two builds at once.
type Builder struct {
	cfg      *config.Config
	fsys     fs.FS
	inputs   *content.Store
	store    deps.Store
	recorder metrics.Recorder
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	revision func(dir string) (string, error)

	mu   sync.Mutex
	docs map[string]*content.Document // parse cache, validated by content hash
}

// Option configures a Builder.
type Option func(*Builder)

// WithFS reads site inputs from fsys instead of the configuration root.
func WithFS(fsys fs.FS) Option { return func(b *Builder) { b.fsys = fsys } }

// WithStateStore persists dependency state in s.
func WithStateStore(s deps.Store) Option { return func(b *Builder) { b.store = s } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithNotifier sets the build event notifier.
func WithNotifier(n notify.Notifier) Option { return func(b *Builder) { b.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithClock overrides the clock used for report times and future-dated content.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// WithRevision overrides source revision detection.
func WithRevision(fn func(dir string) (string, error)) Option {
	return func(b *Builder) { b.revision = fn }
}

// New returns a Builder for cfg. Without options it reads from the
// configuration root, keeps state in memory and records no metrics.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		store:    deps.NewMemoryStore(),
		recorder: metrics.NoopRecorder{},
		notifier: notify.Noop{},
		logger:   slog.Default(),
		now:      time.Now,
		revision: func(dir string) (string, error) {
			info, err := git.Revision(dir)
			return info.String(), err
		},
		docs: map[string]*content.Document{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fsys == nil {
		b.fsys = os.DirFS(cfg.Root())
	}
	dirs := content.Dirs{Content: cfg.Source, Layouts: cfg.Layouts, Data: cfg.Data, Static: cfg.Static}
	for _, p := range []string{cfg.Output, cfg.Build.StateDir} {
		if filepath.IsLocal(p) {
			dirs.Exclude = append(dirs.Exclude, filepath.ToSlash(p))
		}
	}
	for _, c := range cfg.Collections {
		dirs.Collections = append(dirs.Collections, content.CollectionDir{Name: c.Name, Dir: c.Dir})
	}
	b.inputs = content.NewStore(b.fsys, dirs, b.logger)
	return b
}

// Config returns the site configuration.
func (b *Builder) Config() *config.Config { return b.cfg }

// Inputs returns the content store the builder reads from.
func (b *Builder) Inputs() *content.Store { return b.inputs }

// Build runs one build. The returned report is never nil. The error is
// non-nil only for fatal conditions; entity-scoped failures are in the
// report and leave the error nil.
func (b *Builder) Build(ctx context.Context, req Request) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := newReport(uuid.NewString(), b.now())
	report.ConfigHash = b.cfg.Hash()
	logger := b.logger.With(logfields.BuildID(report.BuildID))
	logger.Info("Build started", slog.Bool("incremental", req.Incremental), logfields.Count(len(req.Changed)))

	if timeout := b.cfg.BuildTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	prior, err := b.store.Load(ctx)
	if err != nil {
		logger.Warn("Build state unavailable, rebuilding everything", logfields.Error(err))
		prior = nil
	}

	bs := &buildState{
		b:        b,
		req:      req,
		report:   report,
		logger:   logger,
		recorder: b.recorder,
		out:      outputWriter{root: b.cfg.OutputDir()},
		prior:    prior,
	}

	err = runStages(ctx, bs, defaultStages())
	if err != nil {
		report.SetFatal(bs.current, err)
		report.canceled = errors.Is(err, context.Canceled)
	} else if saveErr := b.store.Save(ctx, bs.tracker.State()); saveErr != nil {
		report.AddWarning(StageWriting, ferrors.StateError("failed to save build state").WithCause(saveErr).Warning().Build())
	}
	report.Finish(b.now())

	if perr := report.Persist(b.cfg.StateDir()); perr != nil {
		logger.Warn("Failed to persist build report", logfields.Error(perr))
	}
	b.observe(report)
	if err == nil {
		b.publish(ctx, report, logger)
	}

	level := slog.LevelInfo
	if report.HasFailures() {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "Build finished",
		logfields.BuildMode(string(report.Mode)),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("rendered", report.Rendered),
		slog.Int("failures", len(report.Failures)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))
	return report, err
}

func (b *Builder) observe(r *Report) {
	b.recorder.ObserveBuildDuration(string(r.Mode), r.Duration())
	outcome := metrics.BuildOutcomeSuccess
	switch r.Outcome {
	case OutcomeWarning:
		outcome = metrics.BuildOutcomeWarning
	case OutcomeFailed:
		outcome = metrics.BuildOutcomeFailed
	case OutcomeCanceled:
		outcome = metrics.BuildOutcomeCanceled
	case OutcomeSuccess:
	}
	b.recorder.IncBuildOutcome(outcome)
	b.recorder.AddArtifacts("rendered", r.Rendered)
	b.recorder.AddArtifacts("unchanged", r.Unchanged)
	b.recorder.AddArtifacts("removed", r.Removed)
	b.recorder.AddArtifacts("failed", len(r.Failures))
}

func (b *Builder) publish(ctx context.Context, r *Report, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := b.notifier.Notify(ctx, notify.BuildEvent{
		BuildID:    r.BuildID,
		Mode:       string(r.Mode),
		Outcome:    string(r.Outcome),
		Revision:   r.Revision,
		Rendered:   r.Rendered,
		Removed:    r.Removed,
		Failed:     len(r.Failures),
		Changed:    r.Changed,
		DurationMS: r.Duration().Milliseconds(),
		Timestamp:  r.End,
	})
	if err != nil {
		logger.Warn("Build notification failed", logfields.Error(err))
	}
}

// Clean removes the output directory, the persisted report and all build
// state, so the next build is a full one.
func (b *Builder) Clean(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out, err := filepath.Abs(b.cfg.OutputDir())
	if err != nil {
		return ferrors.FileSystemError("cannot resolve output directory").WithCause(err).Build()
	}
	root, err := filepath.Abs(b.cfg.Root())
	if err != nil {
		return ferrors.FileSystemError("cannot resolve site directory").WithCause(err).Build()
	}
	if rel, err := filepath.Rel(out, root); err == nil && filepath.IsLocal(rel) || out == root {
		return ferrors.ConfigError("refusing to remove an output directory that contains the site").
			WithContext("path", out).Build()
	}
	if err := os.RemoveAll(out); err != nil {
		return ferrors.FileSystemError("failed to remove output directory").WithCause(err).WithContext("path", out).Build()
	}
	if err := os.Remove(filepath.Join(b.cfg.StateDir(), ReportFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to remove build report").WithCause(err).Build()
	}
	if err := b.store.Save(ctx, deps.NewState()); err != nil {
		return ferrors.StateError("failed to reset build state").WithCause(err).Build()
	}
	b.docs = map[string]*content.Document{}
	b.logger.Info("Cleaned output", logfields.Path(out))
	return nil
}
