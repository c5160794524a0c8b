package db

import (
	"context"
	"testing"
	"time"

	"github.com/pepperonas/Affentanz/internal/models"
)

func TestPruneHistory(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	runs := NewRunRepository(database)
	events := NewEventRepository(database)

	old := time.Now().Add(-48 * time.Hour).UTC()
	oldEnd := old.Add(time.Minute)
	recent := time.Now().Add(-time.Hour).UTC()

	finished := &models.RunRecord{ID: "old-run", WorkflowName: "a", StartedAt: old}
	if err := runs.Create(ctx, finished); err != nil {
		t.Fatalf("Create: %v", err)
	}
	finished.State = models.RunStateCompleted
	finished.EndedAt = &oldEnd
	if err := runs.Finish(ctx, finished); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := runs.Create(ctx, &models.RunRecord{ID: "live-run", WorkflowName: "b", StartedAt: old}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, e := range []*models.Event{
		{Type: models.EventTypeRunStarted, EntityType: models.EntityTypeRun, EntityID: "old-run", Timestamp: old},
		{Type: models.EventTypeRunFinished, EntityType: models.EntityTypeRun, EntityID: "old-run", Timestamp: recent},
		{Type: models.EventTypeRunStarted, EntityType: models.EntityTypeRun, EntityID: "live-run", Timestamp: recent},
		{Type: models.EventTypeWorkflowOpened, EntityType: models.EntityTypeWorkflow, EntityID: "/x.json", Timestamp: old},
	} {
		if err := events.Create(ctx, e); err != nil {
			t.Fatalf("Create event: %v", err)
		}
	}

	result, err := PruneHistory(ctx, database, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneHistory: %v", err)
	}
	if result.Runs != 1 {
		t.Errorf("expected 1 pruned run, got %d", result.Runs)
	}
	if result.Events != 3 {
		t.Errorf("expected 3 pruned events, got %d", result.Events)
	}

	if _, err := runs.Get(ctx, "old-run"); err != ErrRunNotFound {
		t.Errorf("expected old run to be gone, got %v", err)
	}
	if _, err := runs.Get(ctx, "live-run"); err != nil {
		t.Errorf("expected unfinished run to survive: %v", err)
	}
	left, err := events.ListByEntity(ctx, models.EntityTypeRun, "live-run", 0)
	if err != nil || len(left) != 1 {
		t.Errorf("expected live run event to survive, got %d (%v)", len(left), err)
	}
}
