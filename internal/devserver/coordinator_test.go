package devserver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCoordinator(t *testing.T, cfg CoordinatorConfig, build func(context.Context, Batch)) *Coordinator {
	t.Helper()
	c := NewCoordinator(cfg, build, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func nextBatch(t *testing.T, ch <-chan Batch, within time.Duration) Batch {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(within):
		t.Fatalf("no batch within %s", within)
		return Batch{}
	}
}

func TestCoordinator_CoalescesBurstIntoOneBatch(t *testing.T) {
	batches := make(chan Batch, 4)
	c := startCoordinator(t, CoordinatorConfig{QuietWindow: 50 * time.Millisecond, MaxDelay: 2 * time.Second},
		func(_ context.Context, b Batch) { batches <- b })

	c.Changed("content/a.md")
	c.Changed("content/b.md")
	c.Changed("content/a.md")

	b := nextBatch(t, batches, 2*time.Second)
	assert.Equal(t, []string{"content/a.md", "content/b.md"}, b.Paths)
	assert.Equal(t, 3, b.Count)
	assert.False(t, b.Full)
	assert.Equal(t, "quiet", b.Cause)

	select {
	case extra := <-batches:
		t.Fatalf("unexpected second batch: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCoordinator_ChangesDuringBuildGiveOneFollowUp(t *testing.T) {
	var (
		active    atomic.Int32
		maxActive atomic.Int32
		calls     atomic.Int32
	)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	batches := make(chan Batch, 4)

	c := startCoordinator(t, CoordinatorConfig{QuietWindow: 20 * time.Millisecond, MaxDelay: time.Second},
		func(_ context.Context, b Batch) {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			if calls.Add(1) == 1 {
				started <- struct{}{}
				<-release
			}
			active.Add(-1)
			batches <- b
		})

	c.Changed("content/a.md")
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first build never started")
	}
	assert.True(t, c.Running())

	c.Changed("content/x.md")
	c.Changed("content/y.md")
	c.RequestFull()
	close(release)

	first := nextBatch(t, batches, 2*time.Second)
	assert.Equal(t, []string{"content/a.md"}, first.Paths)

	second := nextBatch(t, batches, 2*time.Second)
	assert.Equal(t, []string{"content/x.md", "content/y.md"}, second.Paths)
	assert.True(t, second.Full)
	assert.Equal(t, 3, second.Count)

	select {
	case extra := <-batches:
		t.Fatalf("unexpected third batch: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(1), maxActive.Load())
	assert.False(t, c.Running())
}

func TestCoordinator_MaxDelayBoundsSteadyStream(t *testing.T) {
	batches := make(chan Batch, 8)
	c := startCoordinator(t, CoordinatorConfig{QuietWindow: 200 * time.Millisecond, MaxDelay: 400 * time.Millisecond},
		func(_ context.Context, b Batch) { batches <- b })

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				c.Changed("content/live.md")
			}
		}
	}()

	b := nextBatch(t, batches, 3*time.Second)
	close(stop)
	wg.Wait()
	assert.Equal(t, "max_delay", b.Cause)
	assert.Greater(t, b.Count, 1)
}

func TestCoordinator_DefaultsAndIdleStop(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{}, func(context.Context, Batch) {}, nil)
	assert.Equal(t, 150*time.Millisecond, c.cfg.QuietWindow)
	assert.Equal(t, c.cfg.QuietWindow, c.cfg.MaxDelay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run did not return after cancel")
	}
}
