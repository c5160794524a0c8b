// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/tui/styles"
)

// RenderRunStateBadge renders a run state with icon and color.
func RenderRunStateBadge(styleSet styles.Styles, state models.RunState) string {
	icon, label, style := stateDescriptor(styleSet, state)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func stateDescriptor(styleSet styles.Styles, state models.RunState) (string, string, lipgloss.Style) {
	switch state {
	case models.RunStateRunning:
		return ">", "Running", styleSet.StatusRunning
	case models.RunStatePaused:
		return "||", "Paused", styleSet.StatusPaused
	case models.RunStateCompleted:
		return "OK", "Completed", styleSet.StatusDone
	case models.RunStateFailed:
		return "ERR", "Failed", styleSet.StatusFailed
	case models.RunStateStopped:
		return "-", "Stopped", styleSet.StatusStopped
	case models.RunStateIdle:
		return "-", "Idle", styleSet.StatusIdle
	default:
		return "-", normalizeStateLabel(state), styleSet.Muted
	}
}

func normalizeStateLabel(state models.RunState) string {
	value := strings.TrimSpace(strings.ReplaceAll(string(state), "_", " "))
	if value == "" {
		return "Unknown"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

// RenderProgress renders a bar of width cells filled to done/total followed
// by the counts.
func RenderProgress(styleSet styles.Styles, done, total, width int) string {
	if width < 1 {
		width = 1
	}
	filled := 0
	if total > 0 {
		filled = min(width, max(0, done*width/total))
	}
	bar := styleSet.ProgressFill.Render(strings.Repeat("█", filled)) +
		styleSet.ProgressTrack.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %d/%d", bar, done, total)
}
