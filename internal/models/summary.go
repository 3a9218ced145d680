package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// UnknownCustomer is the sentinel group for records whose customer identity
// is empty or whitespace. Keeping them visible keeps totals accurate.
const UnknownCustomer = "unknown"

// UsageSummaryRow is one aggregated line per customer.
type UsageSummaryRow struct {
	CustomerKey       string
	ConversationCount int
	LastActive        time.Time
}

// Summary is the full result of one aggregation query, including the
// provenance the presentation layer displays alongside the table.
type Summary struct {
	AgentName    string
	Window       TimeWindow
	Rows         []UsageSummaryRow
	DroppedCount int
	FetchedAt    time.Time
}

// TotalConversations sums conversation counts across all rows.
func (s Summary) TotalConversations() int {
	total := 0
	for _, row := range s.Rows {
		total += row.ConversationCount
	}
	return total
}

// WriteCSV serializes rows as comma-separated text with a header row.
// LastActive is rendered as RFC3339 UTC so exports stay parseable.
func WriteCSV(w io.Writer, rows []UsageSummaryRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"customer", "conversation_count", "last_active"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.CustomerKey,
			strconv.Itoa(row.ConversationCount),
			row.LastActive.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", row.CustomerKey, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
