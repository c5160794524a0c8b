// Package tui implements the terminal run monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pepperonas/Affentanz/internal/models"
	"github.com/pepperonas/Affentanz/internal/tui/components"
	"github.com/pepperonas/Affentanz/internal/tui/styles"
)

// Controller is the part of the playback engine the monitor drives.
type Controller interface {
	Status() models.RunStatus
	Stop() error
	Pause() error
	Resume() error
}

// Config configures the run monitor.
type Config struct {
	Controller      Controller
	Workflow        *models.Workflow
	Theme           string
	RefreshInterval time.Duration
}

const (
	defaultRefresh = 100 * time.Millisecond
	progressWidth  = 30
	actionWindow   = 9
)

// Run shows the monitor until the run is terminal or the user leaves it,
// and returns the last observed status.
func Run(cfg Config) (models.RunStatus, error) {
	program := tea.NewProgram(newModel(cfg))
	final, err := program.Run()
	if err != nil {
		return cfg.Controller.Status(), err
	}
	return final.(model).status, nil
}

type model struct {
	ctrl    Controller
	wf      *models.Workflow
	styles  styles.Styles
	refresh time.Duration

	status models.RunStatus
	now    time.Time
	notice string
	width  int
}

func newModel(cfg Config) model {
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return model{
		ctrl:    cfg.Controller,
		wf:      cfg.Workflow,
		styles:  styles.BuildStyles(styles.ThemeByName(cfg.Theme)),
		refresh: refresh,
		status:  cfg.Controller.Status(),
		now:     time.Now(),
	}
}

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.refresh)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.now = time.Time(msg)
		m.status = m.ctrl.Status()
		if m.status.State.Terminal() {
			return m, tea.Quit
		}
		return m, tickCmd(m.refresh)
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "p", " ":
		var err error
		if m.status.State == models.RunStatePaused {
			err = m.ctrl.Resume()
			m.notice = "resuming"
		} else {
			err = m.ctrl.Pause()
			m.notice = "pausing at the next action"
		}
		if err != nil {
			m.notice = err.Error()
		}
	case "s", "q", "esc", "ctrl+c":
		if m.status.State.Terminal() || m.status.State == models.RunStateIdle {
			return m, tea.Quit
		}
		if err := m.ctrl.Stop(); err != nil {
			m.notice = err.Error()
			return m, tea.Quit
		}
		m.notice = "stopping"
	}
	return m, nil
}

func (m model) View() string {
	s := m.styles
	name := m.status.WorkflowName
	if name == "" && m.wf != nil {
		name = m.wf.Name
	}

	lines := []string{
		s.Title.Render("Affentanz") + s.Muted.Render(" / ") + s.Accent.Render(name),
		"",
		components.RenderRunStateBadge(s, m.status.State) + "  " +
			components.RenderProgress(s, m.status.CompletedActions, m.status.TotalActions, progressWidth),
		s.Muted.Render(m.statsLine()),
	}

	if m.status.Failure != nil {
		lines = append(lines, "", s.Error.Render(fmt.Sprintf("action %d: %s",
			m.status.Failure.ActionIndex+1, m.status.Failure.Message)))
	}

	lines = append(lines, "")
	if m.wf == nil || m.wf.Len() == 0 {
		lines = append(lines, components.EmptyWorkflow(name).Render(s))
	} else {
		lines = append(lines, s.Panel.Render(strings.Join(m.actionLines(), "\n")))
	}

	if m.notice != "" {
		lines = append(lines, "", s.Info.Render(m.notice))
	}
	lines = append(lines, "", s.Muted.Render("p pause/resume | s stop | q quit"))
	return strings.Join(lines, "\n") + "\n"
}

func (m model) statsLine() string {
	parts := []string{"elapsed " + m.status.Elapsed(m.now).Round(100*time.Millisecond).String()}
	if m.wf != nil && m.wf.Settings.Loop {
		parts = append(parts, fmt.Sprintf("iteration %d", m.status.Iteration))
	}
	if m.status.RunID != "" {
		parts = append(parts, "run "+shortID(m.status.RunID))
	}
	return strings.Join(parts, " | ")
}

// actionLines renders the actions around the current one.
func (m model) actionLines() []string {
	total := m.wf.Len()
	current := m.status.ActionIndex
	start := max(0, min(current-actionWindow/2, total-actionWindow))
	end := min(total, start+actionWindow)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := fmt.Sprintf("%3d  %s", i+1, models.Describe(m.wf.Actions[i]))
		lines = append(lines, m.actionMarker(i)+" "+text)
	}
	return lines
}

func (m model) actionMarker(i int) string {
	s := m.styles
	st := m.status
	switch {
	case st.Failure != nil && st.Failure.ActionIndex == i:
		return s.Error.Render("x")
	case i == st.ActionIndex && (st.State == models.RunStateRunning || st.State == models.RunStatePaused):
		return s.Accent.Render(">")
	case st.State == models.RunStateCompleted, i < st.ActionIndex:
		return s.Success.Render("✓")
	default:
		return s.Muted.Render("·")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
