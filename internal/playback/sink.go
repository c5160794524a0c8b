package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/models"
)

// EventSink receives playback events.
type EventSink interface {
	Emit(ctx context.Context, event *models.Event) error
	Close() error
}

// NoopSink drops all events.
type NoopSink struct{}

// Emit ignores events.
func (NoopSink) Emit(ctx context.Context, event *models.Event) error {
	return nil
}

// Close is a no-op.
func (NoopSink) Close() error {
	return nil
}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

// Emit forwards the event to every sink and joins their errors.
func (m MultiSink) Emit(ctx context.Context, event *models.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m MultiSink) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DatabaseEventSink writes events to the SQLite event log and keeps the run
// history in step with run.started and run.finished events.
type DatabaseEventSink struct {
	mu     sync.Mutex
	db     *db.DB
	events *db.EventRepository
	runs   *db.RunRepository
	source string
	owned  bool
}

// NewDatabaseEventSink creates a database-backed event sink. source is the
// workflow file recorded with each run. The database is not closed by Close.
func NewDatabaseEventSink(database *db.DB, source string) *DatabaseEventSink {
	return &DatabaseEventSink{
		db:     database,
		events: db.NewEventRepository(database),
		runs:   db.NewRunRepository(database),
		source: source,
	}
}

// OwnDatabase makes Close close the underlying database.
func (s *DatabaseEventSink) OwnDatabase() *DatabaseEventSink {
	s.owned = true
	return s
}

// Emit persists an event.
func (s *DatabaseEventSink) Emit(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New("event database is required")
	}

	switch event.Type {
	case models.EventTypeRunStarted:
		var payload models.RunStartedPayload
		if err := events.DecodePayload(event, &payload); err != nil {
			return err
		}
		if err := s.runs.Create(ctx, &models.RunRecord{
			ID:             event.EntityID,
			WorkflowName:   payload.WorkflowName,
			WorkflowSource: s.source,
			State:          models.RunStateRunning,
			TotalActions:   payload.TotalActions,
			StartedAt:      event.Timestamp,
		}); err != nil {
			return err
		}
		return s.events.Create(ctx, event)

	case models.EventTypeRunFinished:
		return s.finish(ctx, event)

	default:
		return s.events.Create(ctx, event)
	}
}

func (s *DatabaseEventSink) finish(ctx context.Context, event *models.Event) error {
	var payload models.RunFinishedPayload
	if err := events.DecodePayload(event, &payload); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run finish: %w", err)
	}
	defer tx.Rollback()

	ended := event.Timestamp
	if err := s.runs.FinishWithTx(ctx, tx, &models.RunRecord{
		ID:               event.EntityID,
		State:            payload.State,
		CompletedActions: payload.CompletedActions,
		Iterations:       payload.Iterations,
		Failure:          payload.Failure,
		EndedAt:          &ended,
	}); err != nil {
		return err
	}
	if err := s.events.CreateWithTx(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database when the sink owns it.
func (s *DatabaseEventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owned && s.db != nil {
		return s.db.Close()
	}
	return nil
}
