package db

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdash/agent-usage-tui/internal/models"
)

// HistoryPoint is one point on the usage trend chart: total conversations
// observed for an agent at snapshot time.
type HistoryPoint struct {
	TakenAt            time.Time
	TotalConversations int
}

// InsertSnapshot persists one row per customer from the summary. A summary
// with no rows still records a zero marker so the trend chart shows quiet
// periods instead of gaps.
func (db *DB) InsertSnapshot(ctx context.Context, summary models.Summary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `
INSERT INTO usage_snapshots (agent, window_start, window_end, taken_at, customer, conversation_count, last_active)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	takenAt := summary.FetchedAt.UTC().Unix()
	windowStart := summary.Window.Start.UTC().Unix()
	windowEnd := summary.Window.End.UTC().Unix()

	if len(summary.Rows) == 0 {
		if _, err := stmt.ExecContext(ctx, summary.AgentName, windowStart, windowEnd, takenAt, "", 0, 0); err != nil {
			return fmt.Errorf("failed to insert empty snapshot marker: %w", err)
		}
		return tx.Commit()
	}

	for _, row := range summary.Rows {
		_, err := stmt.ExecContext(ctx,
			summary.AgentName, windowStart, windowEnd, takenAt,
			row.CustomerKey, row.ConversationCount, row.LastActive.UTC().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert snapshot row for %s: %w", row.CustomerKey, err)
		}
	}

	return tx.Commit()
}

// History returns the conversation trend for an agent since the given time,
// one point per snapshot, oldest first.
func (db *DB) History(ctx context.Context, agent string, since time.Time) ([]HistoryPoint, error) {
	const query = `
SELECT taken_at, SUM(conversation_count)
FROM usage_snapshots
WHERE agent = ? AND taken_at >= ?
GROUP BY taken_at
ORDER BY taken_at`

	rows, err := db.QueryContext(ctx, query, agent, since.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []HistoryPoint
	for rows.Next() {
		var takenAt int64
		var total int
		if err := rows.Scan(&takenAt, &total); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		points = append(points, HistoryPoint{
			TakenAt:            time.Unix(takenAt, 0).UTC(),
			TotalConversations: total,
		})
	}
	return points, rows.Err()
}

// TopCustomers returns the most recent snapshot's rows for an agent,
// ordered by conversation count, limited to n customers.
func (db *DB) TopCustomers(ctx context.Context, agent string, n int) ([]models.UsageSummaryRow, error) {
	const query = `
SELECT customer, conversation_count, last_active
FROM usage_snapshots
WHERE agent = ?
  AND taken_at = (SELECT MAX(taken_at) FROM usage_snapshots WHERE agent = ?)
  AND customer != ''
ORDER BY conversation_count DESC, last_active DESC, customer ASC
LIMIT ?`

	rows, err := db.QueryContext(ctx, query, agent, agent, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.UsageSummaryRow
	for rows.Next() {
		var row models.UsageSummaryRow
		var lastActive int64
		if err := rows.Scan(&row.CustomerKey, &row.ConversationCount, &lastActive); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		row.LastActive = time.Unix(lastActive, 0).UTC()
		result = append(result, row)
	}
	return result, rows.Err()
}

// PruneOlderThan deletes snapshots taken before the cutoff, returning the
// number of rows removed.
func (db *DB) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		"DELETE FROM usage_snapshots WHERE taken_at < ?", cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
