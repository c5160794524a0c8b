package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the playback log.
type EventType string

const (
	// Run events
	EventTypeRunStarted  EventType = "run.started"
	EventTypeRunPaused   EventType = "run.paused"
	EventTypeRunResumed  EventType = "run.resumed"
	EventTypeRunFinished EventType = "run.finished"

	// Action events
	EventTypeActionStarted   EventType = "action.started"
	EventTypeActionCompleted EventType = "action.completed"
	EventTypeActionFailed    EventType = "action.failed"

	// Condition events
	EventTypeConditionError EventType = "condition.error"

	// Workflow events
	EventTypeWorkflowOpened EventType = "workflow.opened"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeRun      EntityType = "run"
	EntityTypeWorkflow EntityType = "workflow"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// RunStartedPayload is the payload for run.started events.
type RunStartedPayload struct {
	WorkflowName string `json:"workflow_name"`
	TotalActions int    `json:"total_actions"`
	Loop         bool   `json:"loop,omitempty"`
}

// ActionPayload is the payload for action.* events.
type ActionPayload struct {
	ActionIndex int        `json:"action_index"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description,omitempty"`
	Iteration   int        `json:"iteration,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunFinishedPayload is the payload for run.finished events.
type RunFinishedPayload struct {
	State            RunState    `json:"state"`
	CompletedActions int         `json:"completed_actions"`
	Iterations       int         `json:"iterations"`
	Duration         string      `json:"duration"`
	Failure          *RunFailure `json:"failure,omitempty"`
}

// RunRecord is the persisted summary of a run.
type RunRecord struct {
	ID               string
	WorkflowName     string
	WorkflowSource   string
	State            RunState
	TotalActions     int
	CompletedActions int
	Iterations       int
	Failure          *RunFailure
	StartedAt        time.Time
	EndedAt          *time.Time
}

// RecentWorkflow is an entry of the recently opened workflows list.
type RecentWorkflow struct {
	Path     string
	OpenedAt time.Time
}
