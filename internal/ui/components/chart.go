// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/opsdash/agent-usage-tui/internal/db"
	"github.com/opsdash/agent-usage-tui/internal/ui/styles"
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)

	return graph
}

// RenderHistoryChart plots conversation totals over time from snapshot
// history, with a caption spanning the covered range.
func RenderHistoryChart(points []db.HistoryPoint, width, height int) string {
	if len(points) == 0 {
		return styles.HelpStyle.Render("No snapshot history yet. Data appears after the first refresh.")
	}

	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = float64(p.TotalConversations)
	}

	caption := historyCaption(points)
	return RenderLineChart(data, width, height, caption)
}

func historyCaption(points []db.HistoryPoint) string {
	first := points[0].TakenAt.Local()
	last := points[len(points)-1].TakenAt.Local()
	if len(points) == 1 {
		return fmt.Sprintf("conversations at %s", first.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("conversations, %s to %s", first.Format("Jan 2 15:04"), last.Format("Jan 2 15:04"))
}

// RenderSparkline creates a compact single-row trend indicator.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	blocks := []rune("▁▂▃▄▅▆▇█")

	if width > 0 && len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var b strings.Builder
	span := maxVal - minVal
	for _, v := range data {
		idx := 0
		if span > 0 {
			idx = int((v - minVal) / span * float64(len(blocks)-1))
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// FormatRelativeTime renders a timestamp as a short "time ago" string.
func FormatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
