package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pepperonas/Affentanz/internal/models"
)

// DefaultRecentLimit is how many recently opened workflows are kept.
const DefaultRecentLimit = 10

// RecentRepository tracks recently opened workflow files.
type RecentRepository struct {
	db    *DB
	limit int
	now   func() time.Time
}

// NewRecentRepository creates a new RecentRepository keeping at most limit
// entries. A non-positive limit uses DefaultRecentLimit.
func NewRecentRepository(db *DB, limit int) *RecentRepository {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentRepository{db: db, limit: limit, now: time.Now}
}

// Touch marks path as opened now and trims the list to the limit.
func (r *RecentRepository) Touch(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("workflow path is required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recent update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recent_workflows (path, opened_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET opened_at = excluded.opened_at
	`, path, formatTime(r.now())); err != nil {
		return fmt.Errorf("failed to record recent workflow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_workflows WHERE path NOT IN (
			SELECT path FROM recent_workflows ORDER BY opened_at DESC LIMIT ?
		)
	`, r.limit); err != nil {
		return fmt.Errorf("failed to trim recent workflows: %w", err)
	}

	return tx.Commit()
}

// List returns recently opened workflows, newest first.
func (r *RecentRepository) List(ctx context.Context) ([]models.RecentWorkflow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT path, opened_at FROM recent_workflows ORDER BY opened_at DESC LIMIT ?
	`, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent workflows: %w", err)
	}
	defer rows.Close()

	recent := make([]models.RecentWorkflow, 0)
	for rows.Next() {
		var entry models.RecentWorkflow
		var openedAt string
		if err := rows.Scan(&entry.Path, &openedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent workflow: %w", err)
		}
		if t, err := parseTime(openedAt); err == nil {
			entry.OpenedAt = t
		}
		recent = append(recent, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent workflows: %w", err)
	}
	return recent, nil
}

// Remove drops a path from the list, e.g. after the file vanished.
func (r *RecentRepository) Remove(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recent_workflows WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove recent workflow: %w", err)
	}
	return nil
}
