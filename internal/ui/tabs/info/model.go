// Package info provides the info tab showing configuration and keybindings.
package info

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdash/agent-usage-tui/internal/app"
	"github.com/opsdash/agent-usage-tui/internal/config"
	"github.com/opsdash/agent-usage-tui/internal/services"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
	"github.com/opsdash/agent-usage-tui/internal/version"
)

// keyMap defines the key bindings specific to the info tab.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
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

// Model represents the info tab state.
type Model struct {
	state    *app.State
	config   *config.Config
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model
}

// New creates a new info model.
func New(state *app.State, cfg *config.Config, svc *services.Manager) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the info tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, m.keys.Up) || key.Matches(keyMsg, m.keys.Down) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(keyMsg)
			return m, cmd
		}
	}
	return m, nil
}

// View renders the info tab.
func (m *Model) View() string {
	m.viewport.SetContent(m.renderContent())
	return lipgloss.NewStyle().Padding(1, 2).Render(m.viewport.View())
}

func (m *Model) renderContent() string {
	var lines []string

	lines = append(lines, styles.TitleStyle.Render(version.Info()))
	lines = append(lines, "")

	lines = append(lines, styles.SubTitleStyle.Render("Configuration"))
	lines = append(lines, m.configLines()...)
	lines = append(lines, "")

	lines = append(lines, styles.SubTitleStyle.Render("Keyboard Shortcuts"))
	lines = append(lines,
		"  1-3          Switch tabs",
		"  t / w / m    Today, this week, this month",
		"  r            Force refresh (bypasses cache)",
		"  e            Export current view to CSV",
		"  ?            Toggle help overlay",
		"  q, Ctrl+C    Quit",
	)
	lines = append(lines, "")

	lines = append(lines, styles.SubTitleStyle.Render("Data"))
	lines = append(lines,
		styles.HelpStyle.Render("  Conversations are distinct trace IDs per customer. Records without"),
		styles.HelpStyle.Render("  a customer identifier are grouped under \"unknown\". Counts refresh"),
		styles.HelpStyle.Render(fmt.Sprintf("  automatically every %s; cached results are reused for %s.",
			m.config.RefreshInterval, m.config.CacheTTL)),
	)

	return strings.Join(lines, "\n")
}

func (m *Model) configLines() []string {
	excluded := "none"
	if len(m.config.ExcludedCustomers) > 0 {
		excluded = strings.Join(m.config.ExcludedCustomers, ", ")
	}

	credSource := "not resolved yet"
	if m.services != nil {
		if name := m.services.CredentialSource(); name != "" {
			credSource = name
		}
	}

	rows := []struct {
		label string
		value string
	}{
		{"Agent", m.config.AgentName},
		{"Credentials", credSource},
		{"Secrets file", m.config.SecretsPath},
		{"Snapshot database", m.config.DatabasePath},
		{"Excluded customers", excluded},
		{"Cache TTL", m.config.CacheTTL.String()},
		{"Refresh interval", m.config.RefreshInterval.String()},
		{"Page size", fmt.Sprintf("%d", m.config.PageSize)},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %-20s %s", r.label, r.value))
	}
	return lines
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
	return []key.Binding{m.keys.Up, m.keys.Down}
}
