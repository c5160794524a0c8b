package events

import (
	"context"
	"testing"

	"github.com/pepperonas/Affentanz/internal/models"
)

type fakeRepo struct {
	last *models.Event
}

func (r *fakeRepo) Create(ctx context.Context, event *models.Event) error {
	r.last = event
	return nil
}

func TestForRun(t *testing.T) {
	event, err := ForRun(models.EventTypeActionStarted, "run-1", models.ActionPayload{
		ActionIndex: 2,
		ActionType:  models.ActionTypeKeyPress,
	})
	if err != nil {
		t.Fatalf("ForRun failed: %v", err)
	}
	if event.EntityType != models.EntityTypeRun || event.EntityID != "run-1" {
		t.Fatalf("unexpected entity: %s/%s", event.EntityType, event.EntityID)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	var payload models.ActionPayload
	if err := DecodePayload(event, &payload); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if payload.ActionIndex != 2 || payload.ActionType != models.ActionTypeKeyPress {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestNewRequiresEntity(t *testing.T) {
	if _, err := New(models.EventTypeRunStarted, models.EntityTypeRun, "", nil); err == nil {
		t.Fatal("expected error for missing entity id")
	}
}

func TestLogWorkflowOpened(t *testing.T) {
	repo := &fakeRepo{}

	if err := LogWorkflowOpened(context.Background(), repo, "/tmp/flow.json", "flow"); err != nil {
		t.Fatalf("LogWorkflowOpened failed: %v", err)
	}
	if repo.last == nil {
		t.Fatal("expected event to be created")
	}
	if repo.last.Type != models.EventTypeWorkflowOpened {
		t.Fatalf("unexpected event type: %q", repo.last.Type)
	}
	if repo.last.EntityID != "/tmp/flow.json" {
		t.Fatalf("unexpected entity id: %q", repo.last.EntityID)
	}

	if err := LogWorkflowOpened(context.Background(), nil, "x", "y"); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
