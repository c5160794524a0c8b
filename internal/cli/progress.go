package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// progressOut receives progress lines so stdout only carries results.
var progressOut io.Writer = os.Stderr

type progressStep struct {
	started time.Time
}

// startProgress prints label and returns a step to finish with Done or
// Fail. It returns nil, which is safe to use, when progress is disabled.
func startProgress(label string) *progressStep {
	if !progressEnabled() {
		return nil
	}
	fmt.Fprintf(progressOut, "%s... ", label)
	return &progressStep{started: time.Now()}
}

func (p *progressStep) Done() {
	if p == nil {
		return
	}
	fmt.Fprintf(progressOut, "%s (%s)\n", colorize("done", colorGreen), formatDuration(time.Since(p.started)))
}

func (p *progressStep) Fail(err error) {
	if p == nil {
		return
	}
	if err == nil {
		fmt.Fprintln(progressOut, colorize("failed", colorRed))
		return
	}
	fmt.Fprintf(progressOut, "%s: %v\n", colorize("failed", colorRed), err)
}

// withProgress runs fn as a labelled progress step.
func withProgress(label string, fn func() error) error {
	step := startProgress(label)
	if err := fn(); err != nil {
		step.Fail(err)
		return err
	}
	step.Done()
	return nil
}

func progressEnabled() bool {
	if noProgress || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	for _, env := range []string{"AFFENTANZ_NO_PROGRESS", "NO_PROGRESS"} {
		if _, ok := os.LookupEnv(env); ok {
			return false
		}
	}
	return true
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
