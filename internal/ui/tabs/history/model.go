// Package history provides the snapshot-history tab with a trend chart.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdash/agent-usage-tui/internal/app"
	"github.com/opsdash/agent-usage-tui/internal/db"
	"github.com/opsdash/agent-usage-tui/internal/services"
	"github.com/opsdash/agent-usage-tui/internal/ui/components"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
)

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	Reload key.Binding
	Up     key.Binding
	Down   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload history"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	points     []db.HistoryPoint
	loaded     bool
	lastReload time.Time
	errorMsg   string
}

// New creates a new history model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:    state,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return m.reloadCmd()
}

func (m *Model) reloadCmd() tea.Cmd {
	if m.services == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		points, err := m.services.History(ctx)
		return historyLoadedMsg{points: points, err: err}
	}
}

// historyLoadedMsg is sent when snapshot history has been read.
type historyLoadedMsg struct {
	points []db.HistoryPoint
	err    error
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loaded = true
		m.lastReload = time.Now()
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
		} else {
			m.errorMsg = ""
			m.points = msg.points
		}
		m.viewport.SetContent(m.renderContent())

	case app.SummaryLoadedMsg:
		// A refresh may have written a new snapshot.
		return m, m.reloadCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Reload):
			return m, m.reloadCmd()
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// View renders the history tab.
func (m *Model) View() string {
	if !m.loaded {
		return styles.CenterBoth(styles.HelpStyle.Render("Loading history..."), m.width, m.height)
	}
	m.viewport.SetContent(m.renderContent())
	return lipgloss.NewStyle().Padding(1, 2).Render(m.viewport.View())
}

func (m *Model) renderContent() string {
	var sections []string

	sections = append(sections, styles.TitleStyle.Render("Conversation Trend · last 7 days"))

	if m.errorMsg != "" {
		sections = append(sections, styles.ErrorTextStyle.Render("Failed to load history: "+m.errorMsg))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	chartWidth := max(20, m.width-16)
	chartHeight := max(5, m.height-8)
	sections = append(sections, components.RenderHistoryChart(m.points, chartWidth, chartHeight))

	if len(m.points) > 0 {
		latest := m.points[len(m.points)-1]
		sections = append(sections, styles.ProvenanceStyle.Render(
			fmt.Sprintf("%d snapshots · latest %d conversations at %s",
				len(m.points),
				latest.TotalConversations,
				latest.TakenAt.Local().Format("Jan 2 15:04"))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(0, height-2)
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Reload, m.keys.Up, m.keys.Down}
}
