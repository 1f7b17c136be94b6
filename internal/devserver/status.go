package devserver

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// State is what the dev server is doing.
type State string

const (
	StateStarting State = "starting"
	StateIdle     State = "idle"
	StateBuilding State = "building"
)

// Status is the /__status payload.
type Status struct {
	State         State                      `json:"state"`
	LastBuildID   string                     `json:"last_build_id,omitempty"`
	LastOutcome   build.Outcome              `json:"last_outcome,omitempty"`
	LastMode      build.Mode                 `json:"last_mode,omitempty"`
	LastBuildAt   time.Time                  `json:"last_build_at,omitzero"`
	LastError     *ferrors.HTTPErrorResponse `json:"last_error,omitempty"`
	Failures      []build.Issue              `json:"failures,omitempty"`
	Builds        int                        `json:"builds"`
	ReloadClients int                        `json:"reload_clients"`
}

// tracker holds the outcome of the latest build for the status endpoint
// and the error banner.
type tracker struct {
	mu      sync.RWMutex
	status  Status
	lastErr error
	adapter *ferrors.HTTPErrorAdapter
}

func newTracker(adapter *ferrors.HTTPErrorAdapter) *tracker {
	return &tracker{status: Status{State: StateStarting}, adapter: adapter}
}

func (t *tracker) building() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateBuilding
}

func (t *tracker) finished(r *build.Report, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateIdle
	t.status.Builds++
	t.lastErr = err
	t.status.LastError = nil
	t.status.Failures = nil
	if r != nil {
		t.status.LastBuildID = r.BuildID
		t.status.LastOutcome = r.Outcome
		t.status.LastMode = r.Mode
		t.status.LastBuildAt = r.End
		t.status.Failures = r.Failures
	}
	if err != nil {
		resp := t.adapter.FormatErrorResponse(err)
		t.status.LastError = &resp
	}
}

// snapshot returns a copy of the current status.
func (t *tracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// problem returns the text for the error banner, "" when the last build
// had neither a fatal error nor failures.
func (t *tracker) problem() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastErr != nil {
		return t.lastErr.Error()
	}
	if n := len(t.status.Failures); n > 0 {
		first := t.status.Failures[0]
		msg := first.Message
		if first.Path != "" {
			msg = first.Path + ": " + msg
		}
		if n > 1 {
			msg += " (and more)"
		}
		return msg
	}
	return ""
}
