// Package playback executes workflows action by action against the desktop.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pepperonas/Affentanz/internal/condition"
	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/input"
	"github.com/pepperonas/Affentanz/internal/logging"
	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/screen"
)

// Engine errors.
var (
	ErrAlreadyRunning   = errors.New("playback already running")
	ErrNotRunning       = errors.New("playback not running")
	ErrConditionTimeout = errors.New("condition timed out")
)

// Config contains engine configuration.
type Config struct {
	// ActionDelay is a pause inserted between consecutive actions.
	// Default: none.
	ActionDelay time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithEventSink sets the sink receiving playback events.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithMetrics sets the collectors updated during playback.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine runs one workflow at a time. All run state transitions happen on
// the run goroutine; callers observe them through Status.
type Engine struct {
	config   Config
	injector input.Injector
	probe    screen.Probe
	sink     EventSink
	metrics  *Metrics
	logger   zerolog.Logger

	// mu serializes Start, Stop, Pause and Resume.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	paused   atomic.Bool
	resumeCh chan struct{}

	status atomic.Pointer[models.RunStatus]
}

// run is the state owned by a single run goroutine.
type run struct {
	wf      *models.Workflow
	bounds  map[int]screen.Rect
	status  models.RunStatus
	emitCtx context.Context
}

// New creates an idle engine.
func New(config Config, injector input.Injector, probe screen.Probe, opts ...Option) *Engine {
	if config.ActionDelay < 0 {
		config.ActionDelay = 0
	}

	e := &Engine{
		config:   config,
		injector: injector,
		probe:    probe,
		sink:     NoopSink{},
		logger:   logging.Component("playback"),
		resumeCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publish(models.RunStatus{State: models.RunStateIdle})
	return e
}

// Status returns a snapshot of the current run. It never blocks.
func (e *Engine) Status() models.RunStatus {
	return *e.status.Load()
}

// Start validates wf, resolves every monitor it references and begins
// executing it on a new goroutine. The caller must not mutate wf until the
// run is terminal. Cancelling ctx stops the run.
func (e *Engine) Start(ctx context.Context, wf *models.Workflow) (models.RunStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if state := e.Status().State; !state.Startable() {
		return e.Status(), fmt.Errorf("%w: run is %s", ErrAlreadyRunning, state)
	}
	if err := wf.ValidatePlayback(); err != nil {
		return e.Status(), err
	}
	bounds, err := e.resolveMonitors(wf)
	if err != nil {
		return e.Status(), err
	}

	runCtx, cancel := context.WithCancel(ctx)
	now := time.Now().UTC()
	r := &run{
		wf:     wf,
		bounds: bounds,
		status: models.RunStatus{
			RunID:        uuid.New().String(),
			State:        models.RunStateRunning,
			WorkflowName: wf.Name,
			TotalActions: wf.Len(),
			Iteration:    1,
			StartedAt:    &now,
		},
		emitCtx: context.WithoutCancel(ctx),
	}

	e.paused.Store(false)
	select {
	case <-e.resumeCh:
	default:
	}
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	e.emit(r, models.EventTypeRunStarted, models.RunStartedPayload{
		WorkflowName: wf.Name,
		TotalActions: wf.Len(),
		Loop:         wf.Settings.Loop,
	})
	e.metrics.runStarted()
	e.publish(r.status)

	e.logger.Info().
		Str("run_id", r.status.RunID).
		Str("workflow", wf.Name).
		Int("actions", wf.Len()).
		Bool("loop", wf.Settings.Loop).
		Msg("playback starting")

	started := r.status
	go e.execute(runCtx, cancel, r, done)
	return started, nil
}

// Run starts wf and blocks until the run is terminal.
func (e *Engine) Run(ctx context.Context, wf *models.Workflow) (models.RunStatus, error) {
	if _, err := e.Start(ctx, wf); err != nil {
		return e.Status(), err
	}
	return e.Wait(context.Background())
}

// Stop requests cancellation of the current run. The run observes it at the
// next action boundary, poll tick or wait timer and ends Stopped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return ErrNotRunning
	}
	e.logger.Info().Str("run_id", e.Status().RunID).Msg("playback stop requested")
	e.cancel()
	return nil
}

// Pause suspends the run at the next action boundary.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return ErrNotRunning
	}
	e.paused.Store(true)
	return nil
}

// Resume continues a paused run.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active() {
		return ErrNotRunning
	}
	if !e.paused.Swap(false) {
		return nil
	}
	select {
	case e.resumeCh <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until the current run is terminal or ctx is done.
func (e *Engine) Wait(ctx context.Context) (models.RunStatus, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done == nil {
		return e.Status(), nil
	}
	select {
	case <-done:
		return e.Status(), nil
	case <-ctx.Done():
		return e.Status(), ctx.Err()
	}
}

func (e *Engine) active() bool {
	state := e.Status().State
	return state == models.RunStateRunning || state == models.RunStatePaused
}

func (e *Engine) publish(status models.RunStatus) {
	e.status.Store(&status)
}

func (e *Engine) resolveMonitors(wf *models.Workflow) (map[int]screen.Rect, error) {
	bounds := make(map[int]screen.Rect)
	for i, action := range wf.Actions {
		monitor, ok := models.MonitorOf(action)
		if !ok {
			continue
		}
		rect, seen := bounds[monitor]
		if !seen {
			var err error
			rect, err = e.probe.MonitorBounds(monitor)
			if err != nil {
				return nil, fmt.Errorf("actions[%d]: %w", i, err)
			}
			bounds[monitor] = rect
		}
		if wait, ok := action.(models.Wait); ok {
			if region, ok := wait.Region(); ok {
				if _, err := screen.ToGlobal(rect, region); err != nil {
					return nil, fmt.Errorf("actions[%d]: %w", i, err)
				}
			}
		}
	}
	return bounds, nil
}

func (e *Engine) execute(ctx context.Context, cancel context.CancelFunc, r *run, done chan struct{}) {
	defer close(done)
	defer cancel()

	for {
		for i, action := range r.wf.Actions {
			if !e.checkpoint(ctx, r) {
				e.finish(r, models.RunStateStopped, nil)
				return
			}
			if i > 0 && !sleep(ctx, e.config.ActionDelay) {
				e.finish(r, models.RunStateStopped, nil)
				return
			}

			r.status.ActionIndex = i
			e.publish(r.status)

			failure := e.step(ctx, r, i, action)
			if ctx.Err() != nil {
				e.finish(r, models.RunStateStopped, nil)
				return
			}
			if failure != nil {
				e.finish(r, models.RunStateFailed, failure)
				return
			}

			r.status.CompletedActions++
			e.publish(r.status)
		}

		if !r.wf.Settings.Loop || r.wf.Len() == 0 {
			e.finish(r, models.RunStateCompleted, nil)
			return
		}
		if !sleep(ctx, time.Duration(r.wf.Settings.LoopPauseMs)*time.Millisecond) {
			e.finish(r, models.RunStateStopped, nil)
			return
		}
		r.status.Iteration++
		e.publish(r.status)
	}
}

// checkpoint blocks while the run is paused. It reports false when the run
// was stopped.
func (e *Engine) checkpoint(ctx context.Context, r *run) bool {
	if ctx.Err() != nil {
		return false
	}
	if !e.paused.Load() {
		return true
	}

	r.status.State = models.RunStatePaused
	e.publish(r.status)
	e.emit(r, models.EventTypeRunPaused, models.ActionPayload{
		ActionIndex: r.status.ActionIndex,
		Iteration:   r.status.Iteration,
	})
	e.logger.Info().Str("run_id", r.status.RunID).Msg("playback paused")

	for e.paused.Load() {
		select {
		case <-ctx.Done():
			return false
		case <-e.resumeCh:
		}
	}

	r.status.State = models.RunStateRunning
	e.publish(r.status)
	e.emit(r, models.EventTypeRunResumed, models.ActionPayload{
		ActionIndex: r.status.ActionIndex,
		Iteration:   r.status.Iteration,
	})
	e.logger.Info().Str("run_id", r.status.RunID).Msg("playback resumed")
	return ctx.Err() == nil
}

func (e *Engine) step(ctx context.Context, r *run, index int, action models.Action) *models.RunFailure {
	started := time.Now()
	actionType := action.Type()
	payload := models.ActionPayload{
		ActionIndex: index,
		ActionType:  actionType,
		Description: models.Describe(action),
		Iteration:   r.status.Iteration,
	}
	e.emit(r, models.EventTypeActionStarted, payload)
	e.logger.Debug().
		Str("run_id", r.status.RunID).
		Int("index", index).
		Str("action", payload.Description).
		Msg("action started")

	failure := e.perform(ctx, r, index, action)
	elapsed := time.Since(started)
	if ctx.Err() != nil {
		return nil
	}

	payload.Duration = elapsed.String()
	if failure != nil {
		payload.Error = failure.Message
		e.metrics.action(string(actionType), "error", elapsed.Seconds())
		e.emit(r, models.EventTypeActionFailed, payload)
		e.logger.Warn().
			Str("run_id", r.status.RunID).
			Int("index", index).
			Str("reason", string(failure.Reason)).
			Str("error", failure.Message).
			Msg("action failed")
		return failure
	}

	e.metrics.action(string(actionType), "success", elapsed.Seconds())
	e.emit(r, models.EventTypeActionCompleted, payload)
	return nil
}

func (e *Engine) perform(ctx context.Context, r *run, index int, action models.Action) *models.RunFailure {
	switch act := action.(type) {
	case models.MouseClick:
		x, y := screen.GlobalPoint(r.bounds[act.Monitor], act.X, act.Y)
		return injectionFailure(index, e.injector.Click(ctx, x, y, act.Button, act.Double))

	case models.MouseMove:
		x, y := screen.GlobalPoint(r.bounds[act.Monitor], act.X, act.Y)
		return injectionFailure(index, e.injector.Move(ctx, x, y))

	case models.MouseDrag:
		b := r.bounds[act.Monitor]
		fromX, fromY := screen.GlobalPoint(b, act.FromX, act.FromY)
		toX, toY := screen.GlobalPoint(b, act.ToX, act.ToY)
		return injectionFailure(index, e.injector.Drag(ctx, fromX, fromY, toX, toY, act.Button))

	case models.KeyPress:
		return injectionFailure(index, e.injector.PressKeys(ctx, act.Keys))

	case models.TypeText:
		return injectionFailure(index, e.injector.TypeText(ctx, act.Text))

	case models.Wait:
		if !act.IsCondition() {
			sleep(ctx, act.Timeout())
			return nil
		}
		return e.await(ctx, r, index, act)

	default:
		return &models.RunFailure{
			Reason:      models.FailureInjectionError,
			ActionIndex: index,
			Message:     fmt.Sprintf("unsupported action type %q", action.Type()),
		}
	}
}

// await polls a condition every poll interval until it holds or the timeout
// elapses. The last evaluation happens at the deadline.
func (e *Engine) await(ctx context.Context, r *run, index int, wait models.Wait) *models.RunFailure {
	kind := string(wait.Kind)
	poll := wait.PollInterval()
	timeout := wait.Timeout()
	deadline := time.Now().Add(timeout)

	for {
		outcome, err := condition.Evaluate(ctx, wait, e.probe)
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case err != nil && fatalProbeError(err):
			e.metrics.conditionPoll(kind, "error")
			return &models.RunFailure{
				Reason:      models.FailureProbeError,
				ActionIndex: index,
				Message:     err.Error(),
			}
		case err != nil:
			e.metrics.conditionPoll(kind, "error")
			e.logger.Warn().
				Err(err).
				Str("run_id", r.status.RunID).
				Int("index", index).
				Msg("condition probe failed")
			e.emit(r, models.EventTypeConditionError, models.ActionPayload{
				ActionIndex: index,
				ActionType:  models.ActionTypeWait,
				Iteration:   r.status.Iteration,
				Error:       err.Error(),
			})
		case outcome == condition.Satisfied:
			e.metrics.conditionPoll(kind, "satisfied")
			return nil
		default:
			e.metrics.conditionPoll(kind, "pending")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &models.RunFailure{
				Reason:      models.FailureConditionTimeout,
				ActionIndex: index,
				Message:     fmt.Sprintf("%v after %s", ErrConditionTimeout, timeout),
			}
		}
		if !sleep(ctx, min(poll, remaining)) {
			return nil
		}
	}
}

func (e *Engine) finish(r *run, state models.RunState, failure *models.RunFailure) {
	now := time.Now().UTC()
	r.status.State = state
	r.status.Failure = failure
	r.status.EndedAt = &now
	elapsed := r.status.Elapsed(now)

	e.emit(r, models.EventTypeRunFinished, models.RunFinishedPayload{
		State:            state,
		CompletedActions: r.status.CompletedActions,
		Iterations:       r.status.Iteration,
		Duration:         elapsed.String(),
		Failure:          failure,
	})
	e.metrics.runFinished(string(state), elapsed.Seconds())

	var event *zerolog.Event
	if failure != nil {
		event = e.logger.Warn().
			Str("reason", string(failure.Reason)).
			Int("index", failure.ActionIndex).
			Str("error", failure.Message)
	} else {
		event = e.logger.Info()
	}
	event.
		Str("run_id", r.status.RunID).
		Str("state", string(state)).
		Int("completed", r.status.CompletedActions).
		Dur("elapsed", elapsed).
		Msg("playback finished")

	e.publish(r.status)
}

func (e *Engine) emit(r *run, eventType models.EventType, payload any) {
	event, err := events.ForRun(eventType, r.status.RunID, payload)
	if err != nil {
		e.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to build playback event")
		return
	}
	if err := e.sink.Emit(r.emitCtx, event); err != nil {
		e.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to emit playback event")
	}
}

func injectionFailure(index int, err error) *models.RunFailure {
	if err == nil {
		return nil
	}
	if !errors.Is(err, input.ErrInjection) {
		err = fmt.Errorf("%w: %v", input.ErrInjection, err)
	}
	return &models.RunFailure{
		Reason:      models.FailureInjectionError,
		ActionIndex: index,
		Message:     err.Error(),
	}
}

// fatalProbeError reports probe errors that no amount of polling can fix.
func fatalProbeError(err error) bool {
	return errors.Is(err, screen.ErrUnknownMonitor) ||
		errors.Is(err, screen.ErrRegionOutOfBounds) ||
		errors.Is(err, screen.ErrOCRUnavailable)
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
