package components

import (
	"strings"

	"github.com/pepperonas/Affentanz/internal/tui/styles"
)

// EmptyState is a placeholder panel for a view with nothing to show.
type EmptyState struct {
	Title    string
	Subtitle string
	// Suggestions maps a command to a short description, in display order.
	Suggestions [][2]string
}

// Render draws the placeholder, listing suggestions under "Try:".
func (e EmptyState) Render(s styles.Styles) string {
	var b strings.Builder
	b.WriteString(s.Muted.Render(e.Title))
	if e.Subtitle != "" {
		b.WriteString("\n" + s.Muted.Render(e.Subtitle))
	}
	if len(e.Suggestions) == 0 {
		return b.String()
	}

	b.WriteString("\n\n" + s.Text.Render("Try:"))
	for _, suggestion := range e.Suggestions {
		b.WriteString("\n  " + s.Accent.Render(suggestion[0]))
		if suggestion[1] != "" {
			b.WriteString(s.Muted.Render("  # " + suggestion[1]))
		}
	}
	return b.String()
}

// EmptyWorkflow is shown for a workflow without actions.
func EmptyWorkflow(name string) EmptyState {
	return EmptyState{
		Title:    "Workflow \"" + name + "\" has no actions",
		Subtitle: "An empty workflow completes immediately.",
		Suggestions: [][2]string{
			{"affentanz show <file>", "inspect a workflow"},
			{"affentanz new <name>", "create a workflow skeleton"},
		},
	}
}
