// Package dashboard provides the per-customer usage table tab.
package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdash/agent-usage-tui/internal/app"
	"github.com/opsdash/agent-usage-tui/internal/ui/components"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
)

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Top  key.Binding
	End  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous customer"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next customer"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first customer"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last customer"),
		),
	}
}

// Model represents the dashboard tab state.
type Model struct {
	state   *app.State
	table   table.Model
	spinner components.LoadingSpinner
	keys    keyMap
	width   int
	height  int
}

// New creates a new dashboard model.
func New(state *app.State) *Model {
	columns := []table.Column{
		{Title: "Customer", Width: 36},
		{Title: "Conversations", Width: 14},
		{Title: "Last Active", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state:   state,
		table:   t,
		spinner: components.NewSpinner("Fetching usage..."),
		keys:    defaultKeyMap(),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case app.SummaryLoadedMsg, app.ServiceEventMsg:
		m.syncRows()

	case tea.KeyMsg:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// syncRows rebuilds the table rows from the shared state.
func (m *Model) syncRows() {
	summary, _ := m.state.Summary()
	if summary == nil {
		m.table.SetRows(nil)
		return
	}

	rows := make([]table.Row, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		rows = append(rows, table.Row{
			r.CustomerKey,
			formatCount(r.ConversationCount),
			r.LastActive.Local().Format("Jan 2 15:04"),
		})
	}
	m.table.SetRows(rows)
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	tableHeight := max(3, height-8)
	m.table.SetHeight(tableHeight)

	customerWidth := max(20, width-44)
	m.table.SetColumns([]table.Column{
		{Title: "Customer", Width: customerWidth},
		{Title: "Conversations", Width: 14},
		{Title: "Last Active", Width: 20},
	})
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.End}
}
