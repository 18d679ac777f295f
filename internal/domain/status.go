package domain

import "time"

// StageState tracks one stage through the retry wrapper.
type StageState string

const (
	StagePending   StageState = "pending"
	StageRunning   StageState = "running"
	StageRetrying  StageState = "retrying"
	StageCompleted StageState = "completed"
	StageFailed    StageState = "failed"
)

// Terminal reports whether the state can no longer change.
func (s StageState) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// ExecutionStatus is the per-stage execution record. It is created when a
// stage is scheduled, mutated only by the runner that owns it, and frozen once
// the state is terminal.
type ExecutionStatus struct {
	StageName    string     `json:"stage_name"`
	State        StageState `json:"state"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// DurationSeconds is the elapsed wall time, using now for stages still running.
func (s ExecutionStatus) DurationSeconds(now time.Time) float64 {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return end.Sub(*s.StartedAt).Seconds()
}

// ProgressSnapshot is one entry in the append-only progress log of a pipeline
// run. Snapshots are immutable once emitted.
type ProgressSnapshot struct {
	Phase               string            `json:"phase"`
	Percentage          float64           `json:"percentage"`
	Message             string            `json:"message,omitempty"`
	Stages              []ExecutionStatus `json:"stages"`
	StartedAt           time.Time         `json:"started_at"`
	EstimatedCompletion *time.Time        `json:"estimated_completion,omitempty"`
}
