package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Builder runs one site build.
type Builder interface {
	Build(ctx context.Context, req build.Request) (*build.Report, error)
}

// Server is the development server: watcher, build coordinator, live
// reload hub and HTTP front end.
type Server struct {
	cfg      *config.Config
	builder  Builder
	hub      *ReloadHub
	status   *tracker
	coord    *Coordinator
	adapter  *ferrors.HTTPErrorAdapter
	registry *prometheus.Registry
	recorder metrics.Recorder
	classify func(rel string) content.Input
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics exposes reg on /metrics and records live reload clients in recorder.
func WithMetrics(reg *prometheus.Registry, recorder metrics.Recorder) Option {
	return func(s *Server) {
		s.registry = reg
		s.recorder = recorder
	}
}

// WithClassifier decides which changed paths are site inputs; typically
// the content store's Classify.
func WithClassifier(fn func(rel string) content.Input) Option {
	return func(s *Server) { s.classify = fn }
}

// New wires a Server around builder.
func New(cfg *config.Config, builder Builder, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		builder:  builder,
		recorder: metrics.NoopRecorder{},
		classify: func(string) content.Input { return content.InputContent },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.adapter = ferrors.NewHTTPErrorAdapter(s.logger)
	s.status = newTracker(s.adapter)
	s.hub = NewReloadHub(s.recorder, s.logger)
	s.coord = NewCoordinator(CoordinatorConfig{
		QuietWindow: cfg.DebounceWindow(),
		MaxDelay:    cfg.MaxDelay(),
	}, s.rebuild, s.logger)
	return s
}

// Hub returns the live reload hub.
func (s *Server) Hub() *ReloadHub { return s.hub }

// Coordinator returns the change coordinator.
func (s *Server) Coordinator() *Coordinator { return s.coord }

// Status returns the current status snapshot.
func (s *Server) Status() Status {
	st := s.status.snapshot()
	st.ReloadClients = s.hub.Clients()
	return st
}

// rebuild runs one batch. It is only called from the coordinator goroutine
// and, before that starts, from Serve, so builds never overlap.
func (s *Server) rebuild(ctx context.Context, b Batch) {
	hadProblem := s.status.problem() != ""
	s.status.building()

	report, err := s.builder.Build(ctx, build.Request{Incremental: !b.Full, Changed: b.Paths})
	s.status.finished(report, err)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		s.logger.Error("Build failed; keeping previous output", logfields.Error(err))
	} else if report != nil {
		s.logger.Info("Site rebuilt",
			logfields.BuildMode(string(report.Mode)),
			slog.Int("rendered", report.Rendered),
			slog.Int("written", len(report.Changed)),
			slog.Int("failures", len(report.Failures)))
	}

	hasProblem := s.status.problem() != ""
	changed := report != nil && len(report.Changed) > 0
	if changed || hasProblem || hadProblem {
		ev := ReloadEvent{Error: hasProblem}
		if report != nil {
			ev.BuildID = report.BuildID
		}
		s.hub.Broadcast(ev)
	}
}

// Handler returns the HTTP handler serving the site and the dev endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	live := s.cfg.LiveReloadEnabled()
	if live {
		mux.Handle("/__livereload", s.hub)
		mux.HandleFunc("/__livereload/ws", s.hub.ServeWebSocket)
		mux.HandleFunc("/__livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write([]byte(reloadScript))
		})
	}
	mux.HandleFunc("/__status", s.handleStatus)
	if s.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}
	mux.Handle("/", newSiteHandler(s.cfg.OutputDir(), live, s.status.problem))
	return withMiddleware(s.logger, s.adapter, mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.adapter.WriteErrorResponse(w, r, ferrors.ValidationError("method not allowed").
			WithContext("method", r.Method).
			Build())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(s.Status())
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return ferrors.NetworkError("failed to listen").WithCause(err).WithContext("addr", s.cfg.Addr()).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve performs the initial build, starts watching and serves on ln
// until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.rebuild(ctx, Batch{})

	dirs := []string{s.cfg.Source, s.cfg.Layouts, s.cfg.Data, s.cfg.Static}
	watcher, err := NewWatcher(s.cfg.Root(), dirs, s.classify, s.logger)
	if err != nil {
		_ = ln.Close()
		return ferrors.RuntimeError("failed to start file watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{}, 2)
	go func() { watcher.Run(runCtx, func(rel string) { s.coord.Changed(rel) }); done <- struct{}{} }()
	go func() { s.coord.Run(runCtx); done <- struct{}{} }()

	if spec := s.cfg.Serve.RebuildSchedule; spec != "" {
		sched, err := NewScheduler(spec, s.coord.RequestFull, s.logger)
		if err != nil {
			s.logger.Warn("Scheduled rebuilds disabled", logfields.Error(err))
		} else {
			sched.Start()
			defer func() { _ = sched.Stop() }()
		}
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	s.logger.Info("Dev server listening", logfields.Addr(ln.Addr().String()), logfields.URL("http://"+ln.Addr().String()+"/"))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			cancel()
			<-done
			<-done
			return ferrors.NetworkError("dev server stopped").WithCause(err).Build()
		}
	}

	s.logger.Info("Shutting down dev server")
	s.hub.Shutdown()
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	cancel()
	<-done
	<-done
	return nil
}
