package devserver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Batch is one coalesced set of change requests.
type Batch struct {
	Paths []string // sorted changed paths
	Full  bool     // a full rebuild was requested
	Count int      // number of requests folded into the batch
	Cause string   // "quiet" or "max_delay"
}

// CoordinatorConfig tunes debouncing.
type CoordinatorConfig struct {
	// QuietWindow is how long the input must stay quiet before a build starts.
	QuietWindow time.Duration
	// MaxDelay bounds how long a steady stream of changes can postpone a build.
	MaxDelay time.Duration
}

// Coordinator is the single consumer between file watching and building.
// Producers call Changed or RequestFull from any goroutine; Run drains the
// pending set in one goroutine and calls the build function with each
// batch, so builds never overlap. Requests arriving while a build runs are
// folded into exactly one follow-up batch.
type Coordinator struct {
	cfg    CoordinatorConfig
	build  func(context.Context, Batch)
	logger *slog.Logger

	signal chan struct{}

	mu      sync.Mutex
	paths   sets.Set[string]
	full    bool
	count   int
	running bool
}

// NewCoordinator returns a Coordinator that hands batches to build.
func NewCoordinator(cfg CoordinatorConfig, build func(context.Context, Batch), logger *slog.Logger) *Coordinator {
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = 150 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.QuietWindow {
		cfg.MaxDelay = cfg.QuietWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:    cfg,
		build:  build,
		logger: logger,
		signal: make(chan struct{}, 1),
		paths:  sets.New[string](),
	}
}

// Changed enqueues changed site-relative paths. It never blocks.
func (c *Coordinator) Changed(paths ...string) {
	c.mu.Lock()
	for _, p := range paths {
		c.paths.Add(p)
	}
	c.count++
	c.mu.Unlock()
	c.notify()
}

// RequestFull enqueues a full rebuild. It never blocks.
func (c *Coordinator) RequestFull() {
	c.mu.Lock()
	c.full = true
	c.count++
	c.mu.Unlock()
	c.notify()
}

// Running reports whether a build is in progress.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Coordinator) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *Coordinator) take(cause string) (Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return Batch{}, false
	}
	b := Batch{Paths: sets.Sorted(c.paths), Full: c.full, Count: c.count, Cause: cause}
	c.paths = sets.New[string]()
	c.full = false
	c.count = 0
	c.running = true
	return b, true
}

// Run processes batches until ctx is done. It returns after the build in
// flight, if any, has finished.
func (c *Coordinator) Run(ctx context.Context) {
	quiet := time.NewTimer(time.Hour)
	quiet.Stop()
	maxDelay := time.NewTimer(time.Hour)
	maxDelay.Stop()
	defer quiet.Stop()
	defer maxDelay.Stop()

	var quietC, maxC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.signal:
			quiet.Reset(c.cfg.QuietWindow)
			quietC = quiet.C
			if maxC == nil {
				maxDelay.Reset(c.cfg.MaxDelay)
				maxC = maxDelay.C
			}
			continue
		case <-quietC:
			maxDelay.Stop()
			c.runBatch(ctx, "quiet")
		case <-maxC:
			quiet.Stop()
			c.runBatch(ctx, "max_delay")
		}
		quietC, maxC = nil, nil
	}
}

func (c *Coordinator) runBatch(ctx context.Context, cause string) {
	b, ok := c.take(cause)
	if !ok {
		return
	}
	c.logger.Debug("Change batch ready",
		logfields.Count(len(b.Paths)),
		slog.Int("requests", b.Count),
		slog.Bool("full", b.Full),
		slog.String("cause", cause))
	c.build(ctx, b)

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
