package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow(t *testing.T) *Workflow {
	t.Helper()
	wf := NewWorkflow("login")
	click, err := NewMouseClick(100, 200, ButtonLeft, 0)
	require.NoError(t, err)
	keys, err := NewKeyPress("ctrl", "v")
	require.NoError(t, err)
	wait, err := NewDurationWait(250)
	require.NoError(t, err)
	wf.Append(click)
	wf.Append(keys)
	wf.Append(wait)
	return wf
}

func TestNewWorkflowDefaults(t *testing.T) {
	wf := NewWorkflow("  demo ")
	assert.Equal(t, "demo", wf.Name)
	assert.Equal(t, CurrentSchemaVersion, wf.SchemaVersion)
	assert.False(t, wf.CreatedAt.IsZero())
	assert.Equal(t, 0, wf.Len())
	require.NoError(t, wf.Validate())
}

func TestWorkflowValidateReportsActionIndex(t *testing.T) {
	wf := sampleWorkflow(t)
	wf.Append(MouseClick{X: -5, Y: 1, Button: ButtonLeft})

	err := wf.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.True(t, strings.Contains(err.Error(), "actions[3]"), "error should name the index: %v", err)
}

func TestWorkflowValidateAllowsAnyName(t *testing.T) {
	require.NoError(t, NewWorkflow("").Validate())

	padded := &Workflow{Name: " Login ", SchemaVersion: CurrentSchemaVersion}
	require.NoError(t, padded.Validate())
}

func TestWorkflowValidateSchemaVersion(t *testing.T) {
	for _, version := range []int{0, -1, CurrentSchemaVersion + 1} {
		wf := &Workflow{SchemaVersion: version}
		err := wf.Validate()
		require.ErrorIs(t, err, ErrInvalidParameter, "version %d", version)
		assert.Contains(t, err.Error(), "schema_version")
	}
}

func TestWorkflowValidatePlayback(t *testing.T) {
	require.NoError(t, (&Workflow{}).ValidatePlayback())

	wf := &Workflow{Actions: []Action{KeyPress{Keys: []string{"a"}}, KeyPress{}}}
	err := wf.ValidatePlayback()
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), "actions[1]")

	wf = &Workflow{Settings: Settings{LoopPauseMs: -1}}
	require.ErrorIs(t, wf.ValidatePlayback(), ErrInvalidParameter)

	var nilWorkflow *Workflow
	require.ErrorIs(t, nilWorkflow.ValidatePlayback(), ErrInvalidParameter)
}

func TestWorkflowEditing(t *testing.T) {
	wf := sampleWorkflow(t)

	move := MouseMove{X: 1, Y: 1}
	wf.Insert(1, move)
	require.Equal(t, 4, wf.Len())
	assert.Equal(t, ActionTypeMouseMove, wf.Actions[1].Type())

	wf.Insert(99, TypeText{Text: "end"})
	assert.Equal(t, ActionTypeTypeText, wf.Actions[4].Type())

	require.True(t, wf.Swap(0, 4))
	assert.Equal(t, ActionTypeTypeText, wf.Actions[0].Type())
	assert.False(t, wf.Swap(0, 10))

	require.True(t, wf.Move(0, 1))
	assert.Equal(t, ActionTypeMouseMove, wf.Actions[0].Type())
	assert.False(t, wf.Move(0, -1))

	require.True(t, wf.Duplicate(2))
	require.Equal(t, 6, wf.Len())
	assert.Equal(t, wf.Actions[2], wf.Actions[3])

	require.True(t, wf.Remove(3))
	assert.False(t, wf.Remove(-1))
	assert.Equal(t, 5, wf.Len())

	wf.Clear()
	assert.Equal(t, 0, wf.Len())
}

func TestWorkflowCloneIsIndependent(t *testing.T) {
	wf := sampleWorkflow(t)
	clone := wf.Clone()
	require.Equal(t, wf, clone)

	clone.Actions[1].(KeyPress).Keys[0] = "alt"
	clone.Append(TypeText{Text: "x"})

	assert.Equal(t, "ctrl", wf.Actions[1].(KeyPress).Keys[0])
	assert.Equal(t, 3, wf.Len())
}

func TestRunStateTransitions(t *testing.T) {
	assert.True(t, RunStateIdle.Startable())
	assert.True(t, RunStateCompleted.Startable())
	assert.True(t, RunStateFailed.Startable())
	assert.True(t, RunStateStopped.Startable())
	assert.False(t, RunStateRunning.Startable())
	assert.False(t, RunStatePaused.Startable())
	assert.False(t, RunStatePaused.Terminal())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "left click at (1, 2) on monitor 0", Describe(MouseClick{X: 1, Y: 2, Button: ButtonLeft}))
	assert.Equal(t, "right double click at (1, 2) on monitor 1", Describe(MouseClick{X: 1, Y: 2, Button: ButtonRight, Monitor: 1, Double: true}))
	assert.Equal(t, "press ctrl+c", Describe(KeyPress{Keys: []string{"ctrl", "c"}}))
	assert.Equal(t, "wait 500ms", Describe(Wait{Kind: WaitKindDuration, DurationMs: 500}))
	assert.Contains(t, Describe(Wait{Kind: WaitKindColor, Color: &ColorCondition{Target: RGB{R: 255}, TimeoutMs: 10}}), "#ff0000")
	assert.Contains(t, Describe(Wait{Kind: WaitKindText, Text: &TextCondition{Expected: "OK", Match: MatchExact}}), `"OK"`)
}
