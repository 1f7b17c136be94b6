// Package notify publishes build-completed events to external listeners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// BuildEvent summarizes one finished build.
type BuildEvent struct {
	BuildID    string    `json:"build_id"`
	Mode       string    `json:"mode"`
	Outcome    string    `json:"outcome"`
	Revision   string    `json:"revision,omitempty"`
	Rendered   int       `json:"rendered"`
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
	Changed    []string  `json:"changed,omitempty"` // output paths written this build
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives build events. Implementations must not block a build
// for long; errors are logged by the caller and never fail a build.
type Notifier interface {
	Notify(ctx context.Context, ev BuildEvent) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Notify(context.Context, BuildEvent) error { return nil }
func (Noop) Close() error                             { return nil }

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev BuildEvent) error

func (f Func) Notify(ctx context.Context, ev BuildEvent) error { return f(ctx, ev) }
func (Func) Close() error                                      { return nil }

// NATS publishes events as JSON on a core NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	policy  retry.Policy
	logger  *slog.Logger
}

// NewNATS connects to url. The connection reconnects on its own; failed
// publishes are retried per policy.
func NewNATS(url, subject string, policy retry.Policy, logger *slog.Logger) (*NATS, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("sitebuilder"),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("NATS notifier connected", logfields.URL(url), slog.String("subject", subject))
	return &NATS{conn: conn, subject: subject, policy: policy, logger: logger}, nil
}

// Notify publishes ev and flushes so delivery failures surface here.
func (n *NATS) Notify(ctx context.Context, ev BuildEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = n.policy.Do(ctx, func(ctx context.Context) error {
		if err := n.conn.Publish(n.subject, data); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		// FlushWithContext requires a deadline.
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := n.conn.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.logger.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", n.subject))
	return nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
