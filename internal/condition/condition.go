// Package condition decides whether a wait condition currently holds.
package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/screen"
)

// Outcome is the result of a single evaluation.
type Outcome int

const (
	Pending Outcome = iota
	Satisfied
)

func (o Outcome) String() string {
	if o == Satisfied {
		return "satisfied"
	}
	return "pending"
}

// Evaluate probes the screen once for a color or text wait. Probe errors are
// returned as is; the caller decides whether they are fatal.
func Evaluate(ctx context.Context, wait models.Wait, probe screen.Probe) (Outcome, error) {
	switch wait.Kind {
	case models.WaitKindColor:
		if wait.Color == nil {
			return Pending, fmt.Errorf("%w: color wait without condition", models.ErrInvalidParameter)
		}
		sampled, err := probe.SampleColor(ctx, wait.Color.Region)
		if err != nil {
			return Pending, err
		}
		return ColorOutcome(sampled, wait.Color.Target, wait.Color.Tolerance), nil

	case models.WaitKindText:
		if wait.Text == nil {
			return Pending, fmt.Errorf("%w: text wait without condition", models.ErrInvalidParameter)
		}
		read, err := probe.ReadText(ctx, wait.Text.Region)
		if err != nil {
			return Pending, err
		}
		return TextOutcome(read, wait.Text.Expected, wait.Text.Match), nil

	default:
		return Pending, fmt.Errorf("%w: wait kind %q is not a condition", models.ErrInvalidParameter, wait.Kind)
	}
}

// ColorOutcome compares every channel against target within tolerance.
func ColorOutcome(sampled, target models.RGB, tolerance int) Outcome {
	if sampled.Within(target, tolerance) {
		return Satisfied
	}
	return Pending
}

// TextOutcome compares recognized text case-sensitively without any
// whitespace normalization.
func TextOutcome(read, expected string, mode models.MatchMode) Outcome {
	var ok bool
	switch mode {
	case models.MatchExact:
		ok = read == expected
	default:
		ok = strings.Contains(read, expected)
	}
	if ok {
		return Satisfied
	}
	return Pending
}
