package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pepperonas/Affentanz/internal/models"
)

// ErrRunNotFound is returned when a run record does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunRepository persists run summaries.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run record.
func (r *RunRepository) Create(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.State == "" {
		run.State = models.RunStateRunning
	}

	failureJSON, err := marshalFailure(run.Failure)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, workflow_name, workflow_source, state, total_actions,
			completed_actions, iterations, failure_json, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.WorkflowName,
		nullString(run.WorkflowSource),
		string(run.State),
		run.TotalActions,
		run.CompletedActions,
		run.Iterations,
		failureJSON,
		formatTime(run.StartedAt),
		nullTime(run.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Finish records the terminal state of a run.
func (r *RunRepository) Finish(ctx context.Context, run *models.RunRecord) error {
	return r.finishWithExecutor(ctx, r.db, run)
}

// FinishWithTx records the terminal state of a run inside a transaction.
func (r *RunRepository) FinishWithTx(ctx context.Context, tx *sql.Tx, run *models.RunRecord) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.finishWithExecutor(ctx, tx, run)
}

func (r *RunRepository) finishWithExecutor(ctx context.Context, execer eventExecer, run *models.RunRecord) error {
	failureJSON, err := marshalFailure(run.Failure)
	if err != nil {
		return err
	}

	result, err := execer.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, completed_actions = ?, iterations = ?, failure_json = ?, ended_at = ?
		WHERE id = ?
	`,
		string(run.State),
		run.CompletedActions,
		run.Iterations,
		failureJSON,
		nullTime(run.EndedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_name, workflow_source, state, total_actions,
			completed_actions, iterations, failure_json, started_at, ended_at
		FROM runs WHERE id = ?
	`, id)
	return r.scanRun(row)
}

// List returns the most recent runs first. An empty workflow name lists all.
func (r *RunRepository) List(ctx context.Context, workflowName string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, workflow_name, workflow_source, state, total_actions,
			completed_actions, iterations, failure_json, started_at, ended_at
		FROM runs`
	args := []any{}
	if workflowName != "" {
		query += ` WHERE workflow_name = ?`
		args = append(args, workflowName)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.RunRecord, 0)
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) scanRun(row rowScanner) (*models.RunRecord, error) {
	var run models.RunRecord
	var state, startedAt string
	var source, failureJSON, endedAt sql.NullString

	err := row.Scan(
		&run.ID,
		&run.WorkflowName,
		&source,
		&state,
		&run.TotalActions,
		&run.CompletedActions,
		&run.Iterations,
		&failureJSON,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.State = models.RunState(state)
	run.WorkflowSource = source.String
	if t, err := parseTime(startedAt); err == nil {
		run.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := parseTime(endedAt.String); err == nil {
			run.EndedAt = &t
		}
	}
	if failureJSON.Valid {
		var failure models.RunFailure
		if err := json.Unmarshal([]byte(failureJSON.String), &failure); err != nil {
			r.db.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to parse run failure")
		} else {
			run.Failure = &failure
		}
	}
	return &run, nil
}

func marshalFailure(failure *models.RunFailure) (*string, error) {
	if failure == nil {
		return nil, nil
	}
	data, err := json.Marshal(failure)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run failure: %w", err)
	}
	s := string(data)
	return &s, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
