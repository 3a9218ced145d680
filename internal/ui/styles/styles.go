// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the dashboard theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	MarginBottom(1)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// TableSelectedStyle styles selected table rows.
var TableSelectedStyle = lipgloss.NewStyle().
	Background(BgAccent).
	Foreground(TextPrimary).
	Bold(true)

// ProvenanceStyle styles the data-provenance line under the usage table.
var ProvenanceStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	MarginTop(1)

// StaleStyle marks data that comes from a previous successful refresh.
var StaleStyle = lipgloss.NewStyle().
	Foreground(Warning)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error).
	Bold(true)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// PeriodActiveStyle styles the currently selected period in the selector row.
var PeriodActiveStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("229")).
	Background(Primary).
	Padding(0, 1).
	MarginRight(1)

// PeriodInactiveStyle styles non-selected periods.
var PeriodInactiveStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Background(BgLight).
	Padding(0, 1).
	MarginRight(1)

// CenterHorizontal centers content horizontally within a given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
