package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// Mode is the kind of build that actually ran.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// ReportFile is the name of the persisted JSON report inside the state directory.
const ReportFile = "build-report.json"

// Issue is one failure or warning entry of a report.
type Issue struct {
	Stage   StageName `json:"stage"`
	Path    string    `json:"path,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message"`
}

// Report captures what one build did.
type Report struct {
	SchemaVersion  int                               `json:"schema_version"`
	BuildID        string                            `json:"build_id"`
	Mode           Mode                              `json:"mode"`
	FullReason     string                            `json:"full_reason,omitempty"`
	Outcome        Outcome                           `json:"outcome"`
	Start          time.Time                         `json:"start"`
	End            time.Time                         `json:"end"`
	Revision       string                            `json:"revision,omitempty"`
	ConfigHash     string                            `json:"config_hash,omitempty"`
	StageDurations map[StageName]time.Duration       `json:"stage_durations"`
	StageResults   map[StageName]metrics.ResultLabel `json:"stage_results"`

	Documents     int `json:"documents"`
	Parsed        int `json:"parsed"`
	Reused        int `json:"reused"`
	Entities      int `json:"entities"`
	Rendered      int `json:"rendered"`
	Written       int `json:"written"`
	Unchanged     int `json:"unchanged"`
	Removed       int `json:"removed"`
	StaticCopied  int `json:"static_copied"`
	StaticRemoved int `json:"static_removed"`

	Changed  []string `json:"changed"` // output paths written or removed
	Failures []Issue  `json:"failures"`
	Warnings []Issue  `json:"warnings"`
	Fatal    *Issue   `json:"fatal,omitempty"`

	SitebuilderVersion string `json:"sitebuilder_version"`

	canceled bool
}

func newReport(id string, start time.Time) *Report {
	return &Report{
		SchemaVersion:      1,
		BuildID:            id,
		Start:              start,
		StageDurations:     map[StageName]time.Duration{},
		StageResults:       map[StageName]metrics.ResultLabel{},
		Changed:            []string{},
		Failures:           []Issue{},
		Warnings:           []Issue{},
		SitebuilderVersion: version.Version,
	}
}

func issueFrom(stage StageName, err error) Issue {
	is := Issue{Stage: stage, Message: err.Error(), Kind: string(ferrors.KindOf(err))}
	if ce, ok := ferrors.AsClassified(err); ok {
		is.Message = ce.Message()
		if ce.Cause() != nil {
			is.Message += ": " + ce.Cause().Error()
		}
		is.Path, _ = ce.Context().GetString("path")
	}
	return is
}

// AddFailure records an entity-scoped failure.
func (r *Report) AddFailure(stage StageName, err error) {
	r.Failures = append(r.Failures, issueFrom(stage, err))
}

// AddWarning records a non-blocking notice.
func (r *Report) AddWarning(stage StageName, err error) {
	r.Warnings = append(r.Warnings, issueFrom(stage, err))
}

// SetFatal records the error that aborted the build.
func (r *Report) SetFatal(stage StageName, err error) {
	is := issueFrom(stage, err)
	r.Fatal = &is
}

func (r *Report) stageHasIssues(stage StageName) bool {
	for _, group := range [][]Issue{r.Failures, r.Warnings} {
		for _, is := range group {
			if is.Stage == stage {
				return true
			}
		}
	}
	return false
}

// HasFailures reports whether the build should exit non-zero.
func (r *Report) HasFailures() bool {
	return r.Fatal != nil || len(r.Failures) > 0
}

// Finish sets the end time and derives the outcome.
func (r *Report) Finish(end time.Time) {
	r.End = end
	switch {
	case r.canceled:
		r.Outcome = OutcomeCanceled
	case r.HasFailures():
		r.Outcome = OutcomeFailed
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Summary renders the human-readable summary printed by the CLI: counts,
// then one line per failure with its path and reason.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s build %s: %d artifacts rendered, %d written, %d unchanged, %d removed, %d static copied, %d failures, %d warnings (%s)\n",
		r.Mode, r.Outcome, r.Rendered, r.Written, r.Unchanged, r.Removed, r.StaticCopied,
		len(r.Failures), len(r.Warnings), r.Duration().Truncate(time.Millisecond))
	if r.FullReason != "" && r.Mode == ModeFull {
		fmt.Fprintf(&b, "  full rebuild: %s\n", r.FullReason)
	}
	if r.Fatal != nil {
		fmt.Fprintf(&b, "  fatal: %s\n", r.Fatal.line())
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  failed: %s\n", f.line())
	}
	return b.String()
}

func (is Issue) line() string {
	var b strings.Builder
	if is.Path != "" {
		b.WriteString(is.Path)
		b.WriteString(": ")
	}
	b.WriteString(is.Message)
	if is.Kind != "" {
		fmt.Fprintf(&b, " [%s]", is.Kind)
	}
	return b.String()
}

// Persist writes the report atomically into dir.
func (r *Report) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, ReportFile), data)
}

// LoadReport reads a persisted report.
func LoadReport(dir string) (*Report, error) {
	// #nosec G304 -- dir is the configured state directory
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
