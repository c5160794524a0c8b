package cli

import (
	"fmt"
	"strings"

	"github.com/pepperonas/Affentanz/internal/models"
)

func formatRunState(state models.RunState) string {
	label, color := statusLabelForRun(state)
	return colorize(formatStatusLabel(label, string(state)), color)
}

func statusLabelForRun(state models.RunState) (string, string) {
	switch state {
	case models.RunStateCompleted:
		return "OK", colorGreen
	case models.RunStateRunning:
		return "BUSY", colorCyan
	case models.RunStatePaused:
		return "WAIT", colorYellow
	case models.RunStateStopped:
		return "STOP", colorMagenta
	case models.RunStateFailed:
		return "ERR", colorRed
	default:
		return "WARN", colorYellow
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}

func formatFailure(f *models.RunFailure) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("action %d (%s): %s", f.ActionIndex+1, strings.ReplaceAll(string(f.Reason), "_", " "), f.Message)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
