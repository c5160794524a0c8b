package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pepperonas/Affentanz/internal/events"
	"github.com/pepperonas/Affentanz/internal/models"
)

// consoleSink prints a line per playback event for plain terminal output.
type consoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	total int
}

func newConsoleSink(w io.Writer, wf *models.Workflow) *consoleSink {
	return &consoleSink{w: w, total: wf.Len()}
}

func (s *consoleSink) Emit(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case models.EventTypeRunStarted:
		var p models.RunStartedPayload
		if err := events.DecodePayload(event, &p); err != nil {
			return err
		}
		loop := ""
		if p.Loop {
			loop = " (looping)"
		}
		fmt.Fprintf(s.w, "%s %s, %d actions%s\n", colorize("▶", colorCyan), p.WorkflowName, p.TotalActions, loop)

	case models.EventTypeActionStarted:
		var p models.ActionPayload
		if err := events.DecodePayload(event, &p); err != nil {
			return err
		}
		fmt.Fprintf(s.w, "  [%d/%d] %s\n", p.ActionIndex+1, s.total, p.Description)

	case models.EventTypeActionFailed:
		var p models.ActionPayload
		if err := events.DecodePayload(event, &p); err != nil {
			return err
		}
		fmt.Fprintf(s.w, "  %s %s\n", colorize("failed:", colorRed), p.Error)

	case models.EventTypeConditionError:
		var p models.ActionPayload
		if err := events.DecodePayload(event, &p); err != nil {
			return err
		}
		fmt.Fprintf(s.w, "  %s %s\n", colorize("probe:", colorYellow), p.Error)

	case models.EventTypeRunPaused:
		fmt.Fprintln(s.w, colorize("  paused", colorYellow))

	case models.EventTypeRunResumed:
		fmt.Fprintln(s.w, colorize("  resumed", colorCyan))
	}
	return nil
}

func (s *consoleSink) Close() error {
	return nil
}

// jsonlSink writes every playback event as one JSON line.
type jsonlSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLSink(w io.Writer) *jsonlSink {
	return &jsonlSink{enc: json.NewEncoder(w)}
}

func (s *jsonlSink) Emit(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(event)
}

func (s *jsonlSink) Close() error {
	return nil
}
