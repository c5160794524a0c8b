package condition

import (
	"context"
	"errors"
	"testing"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/screen"
)

type stubProbe struct {
	color models.RGB
	text  string
	err   error
	calls int
}

func (s *stubProbe) SampleColor(context.Context, models.Region) (models.RGB, error) {
	s.calls++
	return s.color, s.err
}

func (s *stubProbe) ReadText(context.Context, models.Region) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubProbe) MonitorBounds(int) (screen.Rect, error) {
	return screen.Rect{Width: 100, Height: 100}, nil
}

func colorWait(t *testing.T, target models.RGB, tolerance int) models.Wait {
	t.Helper()
	w, err := models.NewColorWait(models.ColorCondition{
		Region:         models.Region{Width: 1, Height: 1},
		Target:         target,
		Tolerance:      tolerance,
		TimeoutMs:      100,
		PollIntervalMs: 10,
	})
	if err != nil {
		t.Fatalf("build wait: %v", err)
	}
	return w
}

func textWait(t *testing.T, expected string, mode models.MatchMode) models.Wait {
	t.Helper()
	w, err := models.NewTextWait(models.TextCondition{
		Region:         models.Region{Width: 1, Height: 1},
		Expected:       expected,
		Match:          mode,
		TimeoutMs:      100,
		PollIntervalMs: 10,
	})
	if err != nil {
		t.Fatalf("build wait: %v", err)
	}
	return w
}

func TestEvaluateColor(t *testing.T) {
	ctx := context.Background()
	probe := &stubProbe{color: models.RGB{R: 200, G: 100, B: 50}}

	tests := []struct {
		name      string
		target    models.RGB
		tolerance int
		want      Outcome
	}{
		{"within tolerance", models.RGB{R: 205, G: 95, B: 50}, 5, Satisfied},
		{"one channel over", models.RGB{R: 206, G: 100, B: 50}, 5, Pending},
		{"exact match", models.RGB{R: 200, G: 100, B: 50}, 0, Satisfied},
	}
	for _, tt := range tests {
		got, err := Evaluate(ctx, colorWait(t, tt.target, tt.tolerance), probe)
		if err != nil {
			t.Fatalf("%s: Evaluate: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	if probe.calls != len(tests) {
		t.Errorf("expected %d probe calls, got %d", len(tests), probe.calls)
	}
}

func TestEvaluateText(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		read     string
		expected string
		mode     models.MatchMode
		want     Outcome
	}{
		{"contains", "Status: Ready.", "Ready", models.MatchContains, Satisfied},
		{"contains is case sensitive", "status: ready", "Ready", models.MatchContains, Pending},
		{"exact", "Ready", "Ready", models.MatchExact, Satisfied},
		{"exact keeps whitespace", "Ready\n", "Ready", models.MatchExact, Pending},
		{"empty read", "", "Ready", models.MatchContains, Pending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(ctx, textWait(t, tt.expected, tt.mode), &stubProbe{text: tt.read})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluatePropagatesProbeErrors(t *testing.T) {
	probe := &stubProbe{err: screen.ErrUnknownMonitor}
	got, err := Evaluate(context.Background(), colorWait(t, models.RGB{}, 0), probe)
	if got != Pending {
		t.Errorf("expected Pending on probe error, got %v", got)
	}
	if !errors.Is(err, screen.ErrUnknownMonitor) {
		t.Fatalf("expected ErrUnknownMonitor, got %v", err)
	}
}

func TestEvaluateRejectsDurationWait(t *testing.T) {
	w, err := models.NewDurationWait(10)
	if err != nil {
		t.Fatalf("NewDurationWait: %v", err)
	}
	if _, err := Evaluate(context.Background(), w, &stubProbe{}); !errors.Is(err, models.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
