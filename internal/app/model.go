// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/opsdash/agent-usage-tui/internal/models"
	"github.com/opsdash/agent-usage-tui/internal/services"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabDashboard is the ID for the usage dashboard tab.
	TabDashboard TabID = iota
	// TabHistory is the ID for the history tab.
	TabHistory
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabDashboard:
		return "Usage"
	case TabHistory:
		return "History"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	NextTab key.Binding
	PrevTab key.Binding

	Today key.Binding
	Week  key.Binding
	Month key.Binding

	Refresh key.Binding
	Export  key.Binding
	Help    key.Binding
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "usage")),
		Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "history")),
		Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),

		Today: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Week:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "this week")),
		Month: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "this month")),

		Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// Styles defines the application styles.
type Styles struct {
	TabBar       lipgloss.Style
	ActiveTab    lipgloss.Style
	InactiveTab  lipgloss.Style
	TabSeparator lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.TabSeparator = lipgloss.NewStyle().Foreground(subtle).SetString(" | ")

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)
	s.Error = lipgloss.NewStyle().Foreground(errorColor)
	s.Success = lipgloss.NewStyle().Foreground(success)

	return s
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	state    *State
	services *services.Manager
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel <-chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		activeTab: TabDashboard,
		tabNames:  []string{"Usage", "History", "Info"},
		tabs:      make([]Tab, 3),
		state:     NewState(),
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetKeyMap returns the key bindings.
func (m *Model) GetKeyMap() KeyMap {
	return m.keymap
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		m.state.SetRefreshing(true)
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadSummaryCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateTabSizes()

	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))

	case ServiceEventMsg:
		if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}

	case SummaryLoadedMsg:
		cmds = append(cmds, m.handleSummaryLoaded(msg)...)

	case ExportResultMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Export failed: %v", msg.Error)))
		} else {
			cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Exported to %s", msg.Path)))
		}

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	}
	return cmds
}

func (m *Model) handleSummaryLoaded(msg SummaryLoadedMsg) []tea.Cmd {
	if msg.Error != nil {
		var lastGood *models.Summary
		if m.services != nil {
			lastGood = m.services.LastGood()
		}
		m.state.SetError(msg.Error.Error(), lastGood)
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Refresh failed: %v", msg.Error))}
	}
	m.state.SetSummary(msg.Summary)
	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.RefreshingEvent:
		m.state.SetRefreshing(true)

	case services.SummaryUpdatedEvent:
		m.state.SetSummary(e.Summary)

	case services.RefreshErrorEvent:
		m.state.SetError(e.Err.Error(), e.LastGood)

	case services.CredentialsReloadedEvent:
		return tea.Batch(
			notifyInfoCmd("Credentials reloaded"),
			forceRefreshCmd(m.services),
		)
	}
	return nil
}

func (m *Model) selectPeriod(p models.Period) []tea.Cmd {
	if m.services == nil || m.state.Period() == p {
		return nil
	}
	m.state.SetPeriod(p)
	m.state.SetRefreshing(true)
	return []tea.Cmd{setPeriodCmd(m.services, p)}
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// handleKeyMsg handles global keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Tab1):
		m.activeTab = TabDashboard
		m.updateTabSizes()

	case key.Matches(msg, m.keymap.Tab2):
		m.activeTab = TabHistory
		m.updateTabSizes()

	case key.Matches(msg, m.keymap.Tab3):
		m.activeTab = TabInfo
		m.updateTabSizes()

	case key.Matches(msg, m.keymap.NextTab):
		m.activeTab = TabID((int(m.activeTab) + 1) % len(m.tabs))
		m.updateTabSizes()

	case key.Matches(msg, m.keymap.PrevTab):
		m.activeTab = TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs))
		m.updateTabSizes()

	case key.Matches(msg, m.keymap.Today):
		return tea.Batch(m.selectPeriod(models.PeriodToday)...)

	case key.Matches(msg, m.keymap.Week):
		return tea.Batch(m.selectPeriod(models.PeriodThisWeek)...)

	case key.Matches(msg, m.keymap.Month):
		return tea.Batch(m.selectPeriod(models.PeriodThisMonth)...)

	case key.Matches(msg, m.keymap.Refresh):
		if m.services != nil {
			m.state.SetRefreshing(true)
			return forceRefreshCmd(m.services)
		}

	case key.Matches(msg, m.keymap.Export):
		if m.services != nil {
			return exportCSVCmd(m.services)
		}

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
		}
	}
	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); len(toasts) > 0 {
		mainView = m.overlayToasts(mainView, toasts)
	}

	return mainView
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.Notifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)

	y := max(0, (m.height-len(overlayLines))/2)
	x := max(0, (m.width-overlayWidth)/2)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-3        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Reporting Period"))
	lines = append(lines, "  t          Today (trailing 24h)")
	lines = append(lines, "  w          This week")
	lines = append(lines, "  m          This month")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Force refresh")
	lines = append(lines, "  e          Export CSV")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		tabHelp := m.tabs[m.activeTab].ShortHelp()
		if len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}
