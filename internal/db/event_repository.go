package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pepperonas/Affentanz/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

const (
	eventColumns      = `id, timestamp, type, entity_type, entity_id, payload_json, metadata_json`
	defaultEventLimit = 100
)

// EventRepository stores the append-only playback event log. Events are
// returned in insertion order.
type EventRepository struct {
	db *DB
}

type eventExecer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery filters a Query. Nil fields do not filter.
type EventQuery struct {
	Type       *models.EventType
	EntityType *models.EntityType
	EntityID   *string
	Since      *time.Time // inclusive
	Until      *time.Time // exclusive

	// Cursor is the ID of the last event already seen.
	Cursor string
	Limit  int
}

// EventPage is one page of query results. NextCursor is empty on the last
// page.
type EventPage struct {
	Events     []*models.Event
	NextCursor string
}

// Append validates and stores an event, returning ErrInvalidEvent when a
// required field is missing.
func (r *EventRepository) Append(ctx context.Context, event *models.Event) error {
	if event.Type == "" || event.EntityType == "" || event.EntityID == "" {
		return ErrInvalidEvent
	}
	return r.Create(ctx, event)
}

// Create stores an event, assigning an ID and timestamp when unset.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.insert(ctx, r.db, event)
}

// CreateWithTx stores an event inside tx.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, event *models.Event) error {
	if tx == nil {
		return errors.New("transaction is required")
	}
	return r.insert(ctx, tx, event)
}

func (r *EventRepository) insert(ctx context.Context, execer eventExecer, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	var payload, metadata *string
	if len(event.Payload) > 0 {
		s := string(event.Payload)
		payload = &s
	}
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		s := string(data)
		metadata = &s
	}

	_, err := execer.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		formatTime(event.Timestamp),
		string(event.Type),
		string(event.EntityType),
		event.EntityID,
		payload,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.Type, err)
	}
	return nil
}

// Get returns one event by ID.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return r.scanEvent(row)
}

// Query returns a page of events matching q. Passing the returned
// NextCursor as q.Cursor continues after the page.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) (*EventPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	var (
		where []string
		args  []any
	)
	filter := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if q.Type != nil {
		filter("type = ?", string(*q.Type))
	}
	if q.EntityType != nil {
		filter("entity_type = ?", string(*q.EntityType))
	}
	if q.EntityID != nil {
		filter("entity_id = ?", *q.EntityID)
	}
	if q.Since != nil {
		filter("timestamp >= ?", formatTime(*q.Since))
	}
	if q.Until != nil {
		filter("timestamp < ?", formatTime(*q.Until))
	}
	if q.Cursor != "" {
		filter("rowid > (SELECT rowid FROM events WHERE id = ?)", q.Cursor)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY rowid LIMIT ?`
	// one extra row tells whether another page follows
	args = append(args, limit+1)

	found, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	page := &EventPage{Events: found}
	if len(found) > limit {
		page.Events = found[:limit]
		page.NextCursor = found[limit-1].ID
	}
	return page, nil
}

// ListByEntity returns up to limit events about one entity; limit <= 0
// means 100.
func (r *EventRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM events WHERE entity_type = ? AND entity_id = ? ORDER BY rowid LIMIT ?`,
		string(entityType), entityID, limit,
	)
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var found []*models.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return found, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EventRepository) scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event                        models.Event
		timestamp, eventType, entity string
		payload, metadata            sql.NullString
	)
	if err := row.Scan(&event.ID, &timestamp, &eventType, &entity, &event.EntityID, &payload, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}

	event.Type = models.EventType(eventType)
	event.EntityType = models.EntityType(entity)
	if t, err := parseTime(timestamp); err == nil {
		event.Timestamp = t
	}
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("ignoring malformed event metadata")
		}
	}
	return &event, nil
}
