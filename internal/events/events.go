// Package events builds and records playback log events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pepperonas/Affentanz/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// New builds an event with a JSON payload.
func New(eventType models.EventType, entityType models.EntityType, entityID string, payload any) (*models.Event, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		raw = data
	}

	return &models.Event{
		Timestamp:  time.Now().UTC(),
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
	}, nil
}

// ForRun builds an event about a playback run.
func ForRun(eventType models.EventType, runID string, payload any) (*models.Event, error) {
	return New(eventType, models.EntityTypeRun, runID, payload)
}

// DecodePayload unmarshals an event payload into out.
func DecodePayload(event *models.Event, out any) error {
	if event == nil || len(event.Payload) == 0 {
		return fmt.Errorf("event has no payload")
	}
	if err := json.Unmarshal(event.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return nil
}

// LogWorkflowOpened records that a workflow file was opened.
func LogWorkflowOpened(ctx context.Context, repo Repository, path, name string) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}

	event, err := New(models.EventTypeWorkflowOpened, models.EntityTypeWorkflow, path, map[string]string{
		"name": name,
	})
	if err != nil {
		return err
	}
	return repo.Create(ctx, event)
}
