package components

import (
	"strings"
	"testing"
	"time"

	"github.com/opsdash/agent-usage-tui/internal/db"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}

	if s.View() == "" {
		t.Error("View returned empty")
	}
	if !strings.Contains(s.ViewWithLabel(), "Loading") {
		t.Error("ViewWithLabel should contain the label")
	}
	if s.Init() == nil {
		t.Error("Init should return command")
	}

	s.SetLabel("Fetching")
	if !strings.Contains(s.ViewWithLabel(), "Fetching") {
		t.Error("ViewWithLabel should reflect updated label")
	}
}

func TestRenderLineChart(t *testing.T) {
	chart := RenderLineChart([]float64{1, 3, 2, 5, 4}, 40, 6, "test caption")
	if !strings.Contains(chart, "test caption") {
		t.Error("Chart should include caption")
	}

	empty := RenderLineChart(nil, 40, 6, "")
	if !strings.Contains(empty, "No data") {
		t.Errorf("Empty chart = %q, want no-data message", empty)
	}
}

func TestRenderHistoryChart(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	points := []db.HistoryPoint{
		{TakenAt: base, TotalConversations: 3},
		{TakenAt: base.Add(time.Hour), TotalConversations: 7},
		{TakenAt: base.Add(2 * time.Hour), TotalConversations: 5},
	}

	chart := RenderHistoryChart(points, 40, 6)
	if !strings.Contains(chart, "conversations") {
		t.Error("History chart should include caption")
	}

	empty := RenderHistoryChart(nil, 40, 6)
	if !strings.Contains(empty, "No snapshot history") {
		t.Errorf("Empty history chart = %q", empty)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline(nil, 10); got != "" {
		t.Errorf("Empty sparkline = %q, want empty", got)
	}

	line := RenderSparkline([]float64{0, 5, 10}, 10)
	runes := []rune(line)
	if len(runes) != 3 {
		t.Fatalf("Sparkline length = %d, want 3", len(runes))
	}
	if runes[0] != '▁' || runes[2] != '█' {
		t.Errorf("Sparkline = %q, want min and max blocks at ends", line)
	}

	// Flat data should not divide by zero.
	flat := RenderSparkline([]float64{2, 2, 2}, 10)
	if len([]rune(flat)) != 3 {
		t.Errorf("Flat sparkline length = %d, want 3", len([]rune(flat)))
	}

	// Width truncation keeps the most recent values.
	long := RenderSparkline([]float64{1, 2, 3, 4, 5, 6}, 3)
	if len([]rune(long)) != 3 {
		t.Errorf("Truncated sparkline length = %d, want 3", len([]rune(long)))
	}
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"just now", time.Now().Add(-10 * time.Second), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h ago"},
		{"days", time.Now().Add(-49 * time.Hour), "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelativeTime(tt.t); got != tt.want {
				t.Errorf("FormatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
