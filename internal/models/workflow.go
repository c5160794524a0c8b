package models

import (
	"fmt"
	"strings"
	"time"
)

// CurrentSchemaVersion is the highest workflow document version this build
// reads and the version it writes.
const CurrentSchemaVersion = 1

// Settings holds per-workflow playback options.
type Settings struct {
	// Loop restarts the workflow from the first action after the last one
	// until the run is stopped or fails.
	Loop bool

	// LoopPauseMs is the pause between loop iterations.
	LoopPauseMs int
}

// Workflow is an ordered, named sequence of actions. The order of Actions is
// the execution order. An empty workflow is valid.
type Workflow struct {
	Name          string
	CreatedAt     time.Time
	SchemaVersion int
	Settings      Settings
	Actions       []Action
}

// NewWorkflow returns an empty workflow stamped with the current schema
// version and creation time.
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		Name:          strings.TrimSpace(name),
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: CurrentSchemaVersion,
	}
}

// Validate checks that the workflow can be written as a document: its schema
// version is one this build understands and ValidatePlayback passes. The
// name is free-form and may be empty.
func (w *Workflow) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: workflow is required", ErrInvalidParameter)
	}
	v := &ValidationErrors{}
	if w.SchemaVersion < 1 || w.SchemaVersion > CurrentSchemaVersion {
		v.Addf("schema_version", "must be between 1 and %d, got %d", CurrentSchemaVersion, w.SchemaVersion)
	}
	v.Merge("", w.ValidatePlayback())
	return v.Err()
}

// ValidatePlayback checks the settings and every action. Field names of
// action errors are prefixed with their index.
func (w *Workflow) ValidatePlayback() error {
	if w == nil {
		return fmt.Errorf("%w: workflow is required", ErrInvalidParameter)
	}
	v := &ValidationErrors{}
	if w.Settings.LoopPauseMs < 0 {
		v.Addf("settings.loop_pause_ms", "must be >= 0, got %d", w.Settings.LoopPauseMs)
	}
	for i, a := range w.Actions {
		if a == nil {
			v.Addf(fmt.Sprintf("actions[%d]", i), "action is nil")
			continue
		}
		v.Merge(fmt.Sprintf("actions[%d]", i), a.Validate())
	}
	return v.Err()
}

// Len returns the number of actions.
func (w *Workflow) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Actions)
}

// Append adds an action at the end.
func (w *Workflow) Append(a Action) {
	w.Actions = append(w.Actions, a)
}

// Insert places an action at index. Out-of-range indexes append.
func (w *Workflow) Insert(index int, a Action) {
	if index < 0 || index >= len(w.Actions) {
		w.Actions = append(w.Actions, a)
		return
	}
	w.Actions = append(w.Actions, nil)
	copy(w.Actions[index+1:], w.Actions[index:])
	w.Actions[index] = a
}

// Remove deletes the action at index and reports whether it existed.
func (w *Workflow) Remove(index int) bool {
	if index < 0 || index >= len(w.Actions) {
		return false
	}
	w.Actions = append(w.Actions[:index], w.Actions[index+1:]...)
	return true
}

// Swap exchanges two actions and reports whether both indexes were valid.
func (w *Workflow) Swap(i, j int) bool {
	if i < 0 || j < 0 || i >= len(w.Actions) || j >= len(w.Actions) {
		return false
	}
	w.Actions[i], w.Actions[j] = w.Actions[j], w.Actions[i]
	return true
}

// Move shifts the action at index by delta positions (-1 moves it up).
func (w *Workflow) Move(index, delta int) bool {
	return w.Swap(index, index+delta)
}

// Duplicate inserts a deep copy of the action at index right after it.
func (w *Workflow) Duplicate(index int) bool {
	if index < 0 || index >= len(w.Actions) {
		return false
	}
	w.Insert(index+1, CloneAction(w.Actions[index]))
	return true
}

// Clear removes all actions.
func (w *Workflow) Clear() {
	w.Actions = nil
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	if w.Actions != nil {
		out.Actions = make([]Action, len(w.Actions))
		for i, a := range w.Actions {
			out.Actions[i] = CloneAction(a)
		}
	}
	return &out
}
