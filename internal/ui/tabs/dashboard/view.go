package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opsdash/agent-usage-tui/internal/models"
	"github.com/opsdash/agent-usage-tui/internal/ui/components"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
)

// View renders the dashboard tab.
func (m *Model) View() string {
	summary, stale := m.state.Summary()

	if summary == nil {
		if m.state.Refreshing() {
			return styles.CenterBoth(m.spinner.ViewWithLabel(), m.width, m.height)
		}
		if errMsg := m.state.LastError(); errMsg != "" {
			return styles.CenterBoth(styles.ErrorTextStyle.Render("Refresh failed: "+errMsg), m.width, m.height)
		}
		return styles.CenterBoth(styles.HelpStyle.Render("No data yet"), m.width, m.height)
	}

	var sections []string
	sections = append(sections, m.renderHeader(summary.AgentName))
	sections = append(sections, m.renderPeriodSelector())

	if errMsg := m.state.LastError(); errMsg != "" {
		sections = append(sections, styles.ErrorTextStyle.Render("Refresh failed: "+errMsg))
	}

	if len(summary.Rows) == 0 {
		sections = append(sections, styles.HelpStyle.Render("No conversations in this window"))
	} else {
		sections = append(sections, m.table.View())
	}

	sections = append(sections, m.renderProvenance(summary, stale))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

func (m *Model) renderHeader(agentName string) string {
	title := styles.TitleStyle.Render(fmt.Sprintf("Usage by Customer · %s", agentName))
	if m.state.Refreshing() {
		return title + "  " + m.spinner.View()
	}
	return title
}

func (m *Model) renderPeriodSelector() string {
	periods := []struct {
		p     models.Period
		label string
	}{
		{models.PeriodToday, "[t] Today"},
		{models.PeriodThisWeek, "[w] This Week"},
		{models.PeriodThisMonth, "[m] This Month"},
	}

	active := m.state.Period()
	var parts []string
	for _, entry := range periods {
		if entry.p == active {
			parts = append(parts, styles.PeriodActiveStyle.Render(entry.label))
		} else {
			parts = append(parts, styles.PeriodInactiveStyle.Render(entry.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderProvenance renders the data-provenance line: totals, dropped
// records, the queried window and the fetch time.
func (m *Model) renderProvenance(summary *models.Summary, stale bool) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%d customers, %d conversations",
		len(summary.Rows), summary.TotalConversations()))

	if summary.DroppedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d records excluded", summary.DroppedCount))
	}

	parts = append(parts, "window "+summary.Window.String())
	parts = append(parts, "updated "+components.FormatRelativeTime(summary.FetchedAt))

	line := styles.ProvenanceStyle.Render(strings.Join(parts, " · "))
	if stale {
		line += " " + styles.StaleStyle.Render("(stale)")
	}
	return line
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}
