package models

import "time"

// RunState is the lifecycle state of a playback run.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStatePaused    RunState = "paused"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateStopped   RunState = "stopped"
)

// Terminal reports whether no further action executes without a new start.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateStopped:
		return true
	default:
		return false
	}
}

// Startable reports whether a new run may begin from s.
func (s RunState) Startable() bool {
	return s == RunStateIdle || s.Terminal()
}

// FailureReason classifies why a run failed.
type FailureReason string

const (
	FailureInjectionError   FailureReason = "injection_error"
	FailureConditionTimeout FailureReason = "condition_timeout"
	FailureProbeError       FailureReason = "probe_error"
)

// RunFailure records the halting action of a failed run.
type RunFailure struct {
	Reason      FailureReason `json:"reason"`
	ActionIndex int           `json:"action_index"`
	Message     string        `json:"message,omitempty"`
}

// RunStatus is an immutable snapshot of a playback run.
type RunStatus struct {
	RunID            string      `json:"run_id,omitempty"`
	State            RunState    `json:"state"`
	WorkflowName     string      `json:"workflow_name,omitempty"`
	ActionIndex      int         `json:"action_index"`
	TotalActions     int         `json:"total_actions"`
	CompletedActions int         `json:"completed_actions"`
	Iteration        int         `json:"iteration"`
	Failure          *RunFailure `json:"failure,omitempty"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	EndedAt          *time.Time  `json:"ended_at,omitempty"`
}

// Elapsed returns the run duration so far, or its total once ended.
func (s RunStatus) Elapsed(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	if s.EndedAt != nil {
		return s.EndedAt.Sub(*s.StartedAt)
	}
	return now.Sub(*s.StartedAt)
}
