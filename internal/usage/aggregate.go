// Package usage reduces raw trace records to per-customer summaries and
// caches query results with a bounded staleness TTL.
package usage

import (
	"sort"
	"strings"

	"github.com/opsdash/agent-usage-tui/internal/models"
)

// Exclusions is a case-insensitive set of customer keys to omit from
// summaries, used to keep test customers out of the dashboard.
type Exclusions map[string]struct{}

// NewExclusions builds an exclusion set from configured keys.
func NewExclusions(keys []string) Exclusions {
	if len(keys) == 0 {
		return nil
	}
	e := make(Exclusions, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			e[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return e
}

// Contains reports whether the customer key is excluded.
func (e Exclusions) Contains(key string) bool {
	if e == nil {
		return false
	}
	_, ok := e[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// FilterExcluded returns the records whose customer is not excluded.
func FilterExcluded(records []models.TraceRecord, excl Exclusions) []models.TraceRecord {
	if len(excl) == 0 {
		return records
	}
	filtered := make([]models.TraceRecord, 0, len(records))
	for _, r := range records {
		if excl.Contains(r.CustomerKey) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// Aggregate groups trace records by customer and computes per-customer
// conversation counts and most-recent-activity timestamps. Pure: no I/O,
// and any permutation of the same input yields identical output.
//
// Records sharing a trace id (e.g. observed twice across overlapping
// pagination) count once. Empty or whitespace-only customer keys are
// coalesced into the sentinel "unknown" group so their volume stays
// visible instead of being silently dropped.
func Aggregate(records []models.TraceRecord) []models.UsageSummaryRow {
	type group struct {
		conversations int
		lastActive    models.TraceRecord
	}

	seen := make(map[string]struct{}, len(records))
	groups := make(map[string]*group)

	for _, r := range records {
		if _, dup := seen[r.TraceID]; dup {
			continue
		}
		seen[r.TraceID] = struct{}{}

		key := strings.TrimSpace(r.CustomerKey)
		if key == "" {
			key = models.UnknownCustomer
		}

		g, ok := groups[key]
		if !ok {
			g = &group{lastActive: r}
			groups[key] = g
		}
		g.conversations++
		if r.Timestamp.After(g.lastActive.Timestamp) {
			g.lastActive = r
		}
	}

	rows := make([]models.UsageSummaryRow, 0, len(groups))
	for key, g := range groups {
		rows = append(rows, models.UsageSummaryRow{
			CustomerKey:       key,
			ConversationCount: g.conversations,
			LastActive:        g.lastActive.Timestamp,
		})
	}

	sortRows(rows)
	return rows
}

// sortRows orders rows by conversation count descending, ties broken by
// last activity descending, then customer key ascending. The order is
// deterministic so repeated queries and CSV exports are reproducible.
func sortRows(rows []models.UsageSummaryRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ConversationCount != b.ConversationCount {
			return a.ConversationCount > b.ConversationCount
		}
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}
		return a.CustomerKey < b.CustomerKey
	})
}
