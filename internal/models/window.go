package models

import (
	"fmt"
	"time"
)

// Period identifies a named reporting period.
type Period int

const (
	// PeriodToday covers the trailing 24 hours.
	PeriodToday Period = iota
	// PeriodThisWeek starts at Monday 00:00 of the current week.
	PeriodThisWeek
	// PeriodThisMonth starts at the first of the current month, 00:00.
	PeriodThisMonth
	// PeriodCustom carries an explicit caller-supplied range.
	PeriodCustom
)

// String returns a human-readable label for the period.
func (p Period) String() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodThisWeek:
		return "This Week"
	case PeriodThisMonth:
		return "This Month"
	case PeriodCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Key returns a filesystem-safe identifier, used in export filenames.
func (p Period) Key() string {
	switch p {
	case PeriodToday:
		return "today"
	case PeriodThisWeek:
		return "this_week"
	case PeriodThisMonth:
		return "this_month"
	case PeriodCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// TimeWindow is a half-open interval [Start, End). Both bounds are stored
// in UTC; presentation may localize.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// String renders the window for provenance display.
func (w TimeWindow) String() string {
	const layout = "2006-01-02 15:04"
	return fmt.Sprintf("%s to %s UTC", w.Start.UTC().Format(layout), w.End.UTC().Format(layout))
}

// ResolveWindow converts a named period into a concrete window ending at now.
// Calendar boundaries (start of week, start of month) are computed in now's
// location before normalizing to UTC, so "this week" means the local week.
// For PeriodCustom, start must be strictly before end.
func ResolveWindow(p Period, now time.Time, customStart, customEnd time.Time) (TimeWindow, error) {
	var start time.Time

	switch p {
	case PeriodToday:
		start = now.Add(-24 * time.Hour)
	case PeriodThisWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -daysSinceMonday)
		start = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	case PeriodThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodCustom:
		if customStart.IsZero() || customEnd.IsZero() {
			return TimeWindow{}, fmt.Errorf("custom period requires both start and end")
		}
		if !customStart.Before(customEnd) {
			return TimeWindow{}, fmt.Errorf("custom period start %s must be before end %s",
				customStart.Format(time.RFC3339), customEnd.Format(time.RFC3339))
		}
		return TimeWindow{Start: customStart.UTC(), End: customEnd.UTC()}, nil
	default:
		return TimeWindow{}, fmt.Errorf("unknown period %d", p)
	}

	return TimeWindow{Start: start.UTC(), End: now.UTC()}, nil
}
