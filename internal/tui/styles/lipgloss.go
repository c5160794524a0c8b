package styles

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme         Theme
	Title         lipgloss.Style
	Text          lipgloss.Style
	Muted         lipgloss.Style
	Accent        lipgloss.Style
	Panel         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style
	StatusIdle    lipgloss.Style
	StatusRunning lipgloss.Style
	StatusPaused  lipgloss.Style
	StatusDone    lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusStopped lipgloss.Style
	ProgressFill  lipgloss.Style
	ProgressTrack lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	fg := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}

	return Styles{
		Theme:         theme,
		Title:         fg(tokens.Text).Bold(true),
		Text:          fg(tokens.Text),
		Muted:         fg(tokens.TextMuted),
		Accent:        fg(tokens.Accent),
		Panel:         fg(tokens.Text).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(tokens.Border)).Padding(0, 1),
		Success:       fg(tokens.Success),
		Warning:       fg(tokens.Warning),
		Error:         fg(tokens.Error),
		Info:          fg(tokens.Info),
		StatusIdle:    fg(tokens.TextMuted),
		StatusRunning: fg(tokens.Info).Bold(true),
		StatusPaused:  fg(tokens.Warning).Bold(true),
		StatusDone:    fg(tokens.Success).Bold(true),
		StatusFailed:  fg(tokens.Error).Bold(true),
		StatusStopped: fg(tokens.TextMuted).Bold(true),
		ProgressFill:  fg(tokens.Accent),
		ProgressTrack: fg(tokens.Track),
	}
}
