package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/playback"
	"github.com/pepperonas/Affentanz/internal/screen"
	"github.com/pepperonas/Affentanz/internal/workflow"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func isolateWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Chdir(dir)
	return dir
}

func TestResolveWorkflowFromFile(t *testing.T) {
	dir := isolateWorkspace(t)
	path := filepath.Join(dir, "login.yaml")
	wf := models.NewWorkflow("login")
	wf.Append(models.TypeText{Text: "hello"})
	require.NoError(t, workflow.SaveFile(path, wf))

	got, source, err := resolveWorkflow(path)
	require.NoError(t, err)
	assert.Equal(t, "login", got.Name)
	assert.Equal(t, path, source)
}

func TestResolveWorkflowByName(t *testing.T) {
	dir := isolateWorkspace(t)

	got, source, err := resolveWorkflow("focus-and-save")
	require.NoError(t, err)
	assert.Equal(t, "focus-and-save", got.Name)
	assert.Equal(t, workflow.BuiltinSource, source)

	local := models.NewWorkflow("focus-and-save")
	localPath := filepath.Join(dir, ".affentanz", "workflows", "mine.json")
	require.NoError(t, workflow.SaveFile(localPath, local))

	got, source, err = resolveWorkflow("focus-and-save")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, localPath, source)
}

func TestResolveWorkflowMissing(t *testing.T) {
	isolateWorkspace(t)

	_, _, err := resolveWorkflow("missing.json")
	var preflight *PreflightError
	require.True(t, errors.As(err, &preflight))
	assert.Contains(t, preflight.Message, "missing.json")

	_, _, err = resolveWorkflow("no-such-workflow")
	require.True(t, errors.As(err, &preflight))
	assert.Equal(t, "affentanz list", preflight.NextStep)
}

func TestPreflightErrorFormatting(t *testing.T) {
	err := &PreflightError{Message: "boom", Hint: "check things", NextStep: "affentanz init"}
	assert.Equal(t, "boom\n  hint: check things\n  try:  affentanz init", err.Error())
	assert.Equal(t, "plain", (&PreflightError{Message: "plain"}).Error())
}

func TestConfirmFrom(t *testing.T) {
	var prompt bytes.Buffer
	assert.True(t, confirmFrom(strings.NewReader("y\n"), &prompt, "Continue?"))
	assert.Equal(t, "Continue? [y/N]: ", prompt.String())
	assert.True(t, confirmFrom(strings.NewReader("YES\n"), &bytes.Buffer{}, "?"))
	assert.False(t, confirmFrom(strings.NewReader("\n"), &bytes.Buffer{}, "?"))
	assert.False(t, confirmFrom(strings.NewReader(""), &bytes.Buffer{}, "?"))
}

func TestFormatRunState(t *testing.T) {
	assert.Equal(t, "OK completed", formatRunState(models.RunStateCompleted))
	assert.Equal(t, "ERR failed", formatRunState(models.RunStateFailed))
	assert.Equal(t, "STOP stopped", formatRunState(models.RunStateStopped))
	assert.Equal(t, "WARN idle", formatRunState(models.RunStateIdle))
}

func TestFormatFailure(t *testing.T) {
	assert.Equal(t, "", formatFailure(nil))
	assert.Equal(t, "action 3 (condition timeout): condition timed out after 1s", formatFailure(&models.RunFailure{
		Reason:      models.FailureConditionTimeout,
		ActionIndex: 2,
		Message:     "condition timed out after 1s",
	}))
}

func TestWorkflowFileName(t *testing.T) {
	assert.Equal(t, "login.json", workflowFileName("login", workflow.FormatJSON))
	assert.Equal(t, "nightly-backup.yaml", workflowFileName("Nightly Backup", workflow.FormatYAML))
	assert.Equal(t, "workflow.json", workflowFileName("!!!", workflow.FormatJSON))
}

func TestCheckOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	require.NoError(t, checkOverwrite(path, false))

	require.NoError(t, workflow.SaveFile(path, models.NewWorkflow("a")))
	require.NoError(t, checkOverwrite(path, true))

	orig := nonInteractive
	nonInteractive = true
	t.Cleanup(func() { nonInteractive = orig })

	var preflight *PreflightError
	require.True(t, errors.As(checkOverwrite(path, false), &preflight))
}

func TestClipRegion(t *testing.T) {
	monitor := screen.Monitor{Index: 1, Bounds: screen.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}}

	assert.Equal(t, pickedRegion{X: 10, Y: 20, Width: 100, Height: 50, MonitorIndex: 1}, clipRegion(monitor, 10, 20, 100, 50))
	assert.Equal(t, pickedRegion{X: 1200, Y: 1000, Width: 80, Height: 24, MonitorIndex: 1}, clipRegion(monitor, 1200, 1000, 500, 500))
}

func TestConsoleSink(t *testing.T) {
	wf := models.NewWorkflow("demo")
	wf.Append(models.KeyPress{Keys: []string{"ctrl", "s"}})
	wf.Append(models.TypeText{Text: "x"})

	var out bytes.Buffer
	sink := newConsoleSink(&out, wf)
	ctx := context.Background()

	emit := func(eventType models.EventType, payload any) {
		event, err := events.ForRun(eventType, "run-1", payload)
		require.NoError(t, err)
		require.NoError(t, sink.Emit(ctx, event))
	}
	emit(models.EventTypeRunStarted, models.RunStartedPayload{WorkflowName: "demo", TotalActions: 2})
	emit(models.EventTypeActionStarted, models.ActionPayload{ActionIndex: 0, Description: "press ctrl+s"})
	emit(models.EventTypeActionCompleted, models.ActionPayload{ActionIndex: 0})
	emit(models.EventTypeActionStarted, models.ActionPayload{ActionIndex: 1, Description: `type "x"`})
	emit(models.EventTypeActionFailed, models.ActionPayload{ActionIndex: 1, Error: "injection failed"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "demo, 2 actions")
	assert.Equal(t, "  [1/2] press ctrl+s", lines[1])
	assert.Equal(t, `  [2/2] type "x"`, lines[2])
	assert.Equal(t, "  failed: injection failed", lines[3])
	require.NoError(t, sink.Close())
}

func TestJSONLSink(t *testing.T) {
	var out bytes.Buffer
	sink := newJSONLSink(&out)
	event, err := events.ForRun(models.EventTypeRunPaused, "run-1", models.ActionPayload{ActionIndex: 1})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(context.Background(), event))
	require.NoError(t, sink.Emit(context.Background(), event))

	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), `"type":"run.paused"`)
}

func TestReportRun(t *testing.T) {
	started := time.Now().Add(-2 * time.Second)
	ended := started.Add(1500 * time.Millisecond)
	status := models.RunStatus{
		RunID:            "0123456789abcdef",
		State:            models.RunStateCompleted,
		WorkflowName:     "demo",
		TotalActions:     3,
		CompletedActions: 3,
		Iteration:        1,
		StartedAt:        &started,
		EndedAt:          &ended,
	}

	var out bytes.Buffer
	require.NoError(t, reportRun(&out, status))
	assert.Equal(t, "OK completed demo: 3/3 actions in 1.5s\n", out.String())

	status.State = models.RunStateFailed
	status.CompletedActions = 1
	status.Failure = &models.RunFailure{Reason: models.FailureInjectionError, ActionIndex: 1, Message: "boom"}
	out.Reset()
	err := reportRun(&out, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 01234567 failed")
	assert.Contains(t, out.String(), "action 2 (injection error): boom")
}

func TestWriteOutput(t *testing.T) {
	origJSONL := jsonlOutput
	t.Cleanup(func() { jsonlOutput = origJSONL })

	var out bytes.Buffer
	jsonlOutput = false
	require.NoError(t, WriteOutput(&out, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())

	out.Reset()
	jsonlOutput = true
	require.NoError(t, WriteOutput(&out, map[string]int{"a": 1}))
	assert.Equal(t, "{\"a\":1}\n", out.String())
}

func TestWithProgress(t *testing.T) {
	origOut, origNoProgress := progressOut, noProgress
	t.Cleanup(func() {
		progressOut = origOut
		noProgress = origNoProgress
	})
	t.Setenv("AFFENTANZ_NO_PROGRESS", "")
	require.NoError(t, os.Unsetenv("AFFENTANZ_NO_PROGRESS"))
	t.Setenv("NO_PROGRESS", "")
	require.NoError(t, os.Unsetenv("NO_PROGRESS"))

	var out bytes.Buffer
	progressOut = &out
	noProgress = false

	require.NoError(t, withProgress("Loading", func() error { return nil }))
	assert.True(t, strings.HasPrefix(out.String(), "Loading... done ("), out.String())

	out.Reset()
	err := withProgress("Saving", func() error { return errors.New("disk full") })
	require.EqualError(t, err, "disk full")
	assert.Equal(t, "Saving... failed: disk full\n", out.String())

	out.Reset()
	noProgress = true
	require.NoError(t, withProgress("Quiet", func() error { return nil }))
	assert.Empty(t, out.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500µs", formatDuration(500*time.Microsecond))
	assert.Equal(t, "120ms", formatDuration(123*time.Millisecond))
	assert.Equal(t, "2.5s", formatDuration(2468*time.Millisecond))
	assert.Equal(t, "1m31s", formatDuration(90*time.Second+600*time.Millisecond))
}

func TestWriteTableTruncatesLongCells(t *testing.T) {
	var out bytes.Buffer
	long := strings.Repeat("x", maxCellWidth+10)
	require.NoError(t, writeTable(&out, []string{"A", "B"}, [][]string{{"1", long}}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
}

type stopFunc func() error

func (f stopFunc) Stop() error { return f() }

func TestStopAfterMonitorError(t *testing.T) {
	monitorErr := errors.New("terminal gone")

	tests := []struct {
		name      string
		stopErr   error
		wantStop  bool
		wantError bool
	}{
		{"stopped", nil, true, false},
		{"already finished", playback.ErrNotRunning, true, false},
		{"stop failed", errors.New("stuck"), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			stopped := false
			stopAfterMonitorError(stopFunc(func() error {
				stopped = true
				return tt.stopErr
			}), monitorErr, zerolog.New(&buf))

			assert.Equal(t, tt.wantStop, stopped)
			out := buf.String()
			assert.Contains(t, out, "run monitor failed")
			assert.Contains(t, out, "terminal gone")
			if tt.wantError {
				assert.Contains(t, out, "failed to stop run")
				assert.Contains(t, out, "stuck")
			} else {
				assert.NotContains(t, out, "failed to stop run")
			}
		})
	}
}
