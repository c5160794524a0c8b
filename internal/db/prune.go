package db

import (
	"context"
	"fmt"
	"time"
)

// PruneResult counts the rows removed by PruneHistory.
type PruneResult struct {
	Runs   int64 `json:"runs"`
	Events int64 `json:"events"`
}

// PruneHistory deletes finished runs that ended before cutoff together with
// their events, plus any other events older than cutoff. Runs still in
// progress are kept.
func PruneHistory(ctx context.Context, database *DB, cutoff time.Time) (PruneResult, error) {
	var result PruneResult
	ts := formatTime(cutoff)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM events
		WHERE timestamp < ?
		   OR (entity_type = 'run' AND entity_id IN (
		       SELECT id FROM runs WHERE ended_at IS NOT NULL AND ended_at < ?))
	`, ts, ts)
	if err != nil {
		return result, fmt.Errorf("prune events: %w", err)
	}
	result.Events, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE ended_at IS NOT NULL AND ended_at < ?`, ts)
	if err != nil {
		return result, fmt.Errorf("prune runs: %w", err)
	}
	result.Runs, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("commit prune: %w", err)
	}
	database.logger.Info().
		Int64("runs", result.Runs).
		Int64("events", result.Events).
		Time("cutoff", cutoff).
		Msg("history pruned")
	return result, nil
}
