package runner

import (
	"time"

	"github.com/kuitang/uiverify/internal/checklist"
)

// Status is the outcome of a single step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusVisible Status = "visible"
	StatusHidden  Status = "hidden"
	// StatusAbsent marks a wait that timed out and was absorbed.
	StatusAbsent Status = "absent"
	StatusFailed Status = "failed"
)

// StepResult records what one executed step did.
type StepResult struct {
	Index    int
	Name     string
	Kind     checklist.Kind
	Status   Status
	Detail   string
	Duration time.Duration
	Artifact string
}

// Artifact is a stored file and where it landed.
type Artifact struct {
	Name     string
	Location string
}

// Result summarizes a run. Steps after a fault are absent from Steps.
type Result struct {
	RunID     string
	Checklist string
	BaseURL   string
	Steps     []StepResult
	Artifacts []Artifact
	Started   time.Time
	Finished  time.Time
	Err       error
}

// Passed reports whether the run finished without a fault.
func (r *Result) Passed() bool {
	return r.Err == nil
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Count returns how many steps ended with status.
func (r *Result) Count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}
