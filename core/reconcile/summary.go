package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunFailed is wrapped by RunSummary.Err when a run must exit non-zero.
var ErrRunFailed = errors.New("sync run failed")

// Stage names reported when a platform fails before writing.
const (
	StageExtract = "extract"
	StageDiff    = "diff"
)

// RunSummary is the outcome of one sync run across all platforms.
type RunSummary struct {
	RunID     string             `json:"run_id" yaml:"run_id"`
	Started   time.Time          `json:"started" yaml:"started"`
	Finished  time.Time          `json:"finished" yaml:"finished"`
	DryRun    bool               `json:"dry_run" yaml:"dry_run"`
	Studies   []string           `json:"studies,omitempty" yaml:"studies,omitempty"`
	Platforms []*PlatformSummary `json:"platforms" yaml:"platforms"`
}

// PlatformSummary aggregates the counts and details for one platform.
type PlatformSummary struct {
	Platform Platform `json:"platform" yaml:"platform"`

	// Stage and Error are set when the platform aborted before writing.
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Extracted    int `json:"extracted" yaml:"extracted"`
	Dropped      int `json:"dropped" yaml:"dropped"`
	Deduplicated int `json:"deduplicated" yaml:"deduplicated"`
	New          int `json:"new" yaml:"new"`
	Unchanged    int `json:"unchanged" yaml:"unchanged"`
	Changed      int `json:"changed" yaml:"changed"`
	Regressed    int `json:"regressed" yaml:"regressed"`
	Created      int `json:"created" yaml:"created"`
	Updated      int `json:"updated" yaml:"updated"`
	Failed       int `json:"failed" yaml:"failed"`

	DropReasons map[string]int       `json:"drop_reasons,omitempty" yaml:"drop_reasons,omitempty"`
	DropCauses  map[DropCause]int    `json:"-" yaml:"-"`
	Collisions  []IdentityCollision  `json:"collisions,omitempty" yaml:"collisions,omitempty"`
	Regressions []RegressionConflict `json:"regressions,omitempty" yaml:"regressions,omitempty"`
	Failures    []ApplyError         `json:"failures,omitempty" yaml:"failures,omitempty"`

	// Plan is the classified diff, kept only for dry runs.
	Plan *DiffResult `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// Platform returns the summary for p, or nil when p was not part of the run.
func (s *RunSummary) Platform(p Platform) *PlatformSummary {
	for _, ps := range s.Platforms {
		if ps.Platform == p {
			return ps
		}
	}
	return nil
}

// Err reports whether the run should exit non-zero: a platform failed at
// extraction or lookup, or at least one write failed after retries.
func (s *RunSummary) Err() error {
	var problems []string
	for _, ps := range s.Platforms {
		if ps.Error != "" {
			problems = append(problems, fmt.Sprintf("%s %s: %s", ps.Platform, ps.Stage, ps.Error))
		}
		if ps.Failed > 0 {
			problems = append(problems, fmt.Sprintf("%s: %d writes failed", ps.Platform, ps.Failed))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRunFailed, strings.Join(problems, "; "))
}

// Totals sums the counters of every platform.
func (s *RunSummary) Totals() PlatformSummary {
	var t PlatformSummary
	for _, ps := range s.Platforms {
		t.Extracted += ps.Extracted
		t.Dropped += ps.Dropped
		t.Deduplicated += ps.Deduplicated
		t.New += ps.New
		t.Unchanged += ps.Unchanged
		t.Changed += ps.Changed
		t.Regressed += ps.Regressed
		t.Created += ps.Created
		t.Updated += ps.Updated
		t.Failed += ps.Failed
	}
	return t
}

// DropCause groups drops by column and class, without the raw value.
type DropCause struct {
	Field string
	Class DropClass
}

func (ps *PlatformSummary) addDrops(drops []Drop) {
	ps.Dropped += len(drops)
	if len(drops) == 0 {
		return
	}
	if ps.DropReasons == nil {
		ps.DropReasons = make(map[string]int)
	}
	if ps.DropCauses == nil {
		ps.DropCauses = make(map[DropCause]int)
	}
	for _, d := range drops {
		reason := d.Reason
		if d.Field != "" {
			reason = d.Field + ": " + d.Reason
		}
		ps.DropReasons[reason]++
		ps.DropCauses[DropCause{Field: d.Field, Class: d.Class}]++
	}
}

func (ps *PlatformSummary) abort(stage string, err error) {
	ps.Stage = stage
	ps.Error = err.Error()
}
