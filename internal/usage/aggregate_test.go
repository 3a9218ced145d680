package usage

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/opsdash/agent-usage-tui/internal/models"
)

func ts(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}

func record(traceID, customer string, unix int64) models.TraceRecord {
	return models.TraceRecord{
		TraceID:     traceID,
		CustomerKey: customer,
		Timestamp:   ts(unix),
		AgentName:   "ProjectManager",
	}
}

func TestAggregate_Scenario(t *testing.T) {
	// Duplicate trace "a" counts once; X ends with 2 conversations.
	records := []models.TraceRecord{
		record("a", "X", 10),
		record("a", "X", 10),
		record("b", "X", 20),
		record("c", "Y", 5),
	}

	rows := Aggregate(records)

	want := []models.UsageSummaryRow{
		{CustomerKey: "X", ConversationCount: 2, LastActive: ts(20)},
		{CustomerKey: "Y", ConversationCount: 1, LastActive: ts(5)},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("unexpected summary:\ngot:  %+v\nwant: %+v", rows, want)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	rows := Aggregate(nil)
	if rows == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestAggregate_UnknownCoalescing(t *testing.T) {
	records := []models.TraceRecord{
		record("a", "", 10),
		record("b", "   ", 20),
		record("b", "\t", 20), // duplicate trace id, still one conversation
		record("c", "acme", 15),
	}

	rows := Aggregate(records)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}

	var unknown *models.UsageSummaryRow
	for i := range rows {
		if rows[i].CustomerKey == models.UnknownCustomer {
			unknown = &rows[i]
		}
	}
	if unknown == nil {
		t.Fatal("expected an unknown group")
	}
	if unknown.ConversationCount != 2 {
		t.Errorf("expected 2 conversations in unknown group after dedup, got %d", unknown.ConversationCount)
	}
	if !unknown.LastActive.Equal(ts(20)) {
		t.Errorf("expected last active 20, got %v", unknown.LastActive)
	}
}

func TestAggregate_SortOrder(t *testing.T) {
	// Ties at each level of the ordering: count, then last active, then key.
	records := []models.TraceRecord{
		record("a1", "alpha", 100),
		record("a2", "alpha", 50),
		record("b1", "beta", 100),
		record("b2", "beta", 90),
		record("c1", "gamma", 200),
		record("d1", "delta", 200),
	}

	rows := Aggregate(records)

	wantOrder := []string{"alpha", "beta", "delta", "gamma"}
	// alpha and beta both have 2 conversations and last active 100; alpha
	// sorts first by key. delta and gamma tie at 1 conversation and last
	// active 200; delta sorts first by key.
	for i, key := range wantOrder {
		if rows[i].CustomerKey != key {
			t.Fatalf("position %d: expected %s, got %s (rows: %+v)", i, key, rows[i].CustomerKey, rows)
		}
	}
}

func TestAggregate_PermutationInvariance(t *testing.T) {
	records := []models.TraceRecord{
		record("a", "X", 10),
		record("b", "X", 20),
		record("c", "Y", 5),
		record("d", "Y", 25),
		record("e", "", 1),
		record("f", "Z", 25),
		record("a", "X", 10), // duplicate
	}

	baseline := Aggregate(records)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]models.TraceRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		if got := Aggregate(shuffled); !reflect.DeepEqual(got, baseline) {
			t.Fatalf("permutation %d changed output:\ngot:  %+v\nwant: %+v", i, got, baseline)
		}
	}
}

func TestAggregate_RandomizedSortInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	customers := []string{"a", "b", "c", "d", "e"}
	timestamps := []int64{10, 20, 30}

	for trial := 0; trial < 25; trial++ {
		var records []models.TraceRecord
		n := rng.Intn(40) + 1
		for i := 0; i < n; i++ {
			records = append(records, models.TraceRecord{
				TraceID:     string(rune('a'+rng.Intn(26))) + string(rune('a'+rng.Intn(26))),
				CustomerKey: customers[rng.Intn(len(customers))],
				Timestamp:   ts(timestamps[rng.Intn(len(timestamps))]),
			})
		}

		rows := Aggregate(records)
		for i := 1; i < len(rows); i++ {
			prev, cur := rows[i-1], rows[i]
			switch {
			case prev.ConversationCount > cur.ConversationCount:
			case prev.ConversationCount < cur.ConversationCount:
				t.Fatalf("trial %d: counts out of order at %d: %+v", trial, i, rows)
			case prev.LastActive.After(cur.LastActive):
			case prev.LastActive.Before(cur.LastActive):
				t.Fatalf("trial %d: last active out of order at %d: %+v", trial, i, rows)
			case prev.CustomerKey >= cur.CustomerKey:
				t.Fatalf("trial %d: keys out of order at %d: %+v", trial, i, rows)
			}
		}
	}
}

func TestFilterExcluded(t *testing.T) {
	excl := NewExclusions([]string{"Test", " demo-co "})
	records := []models.TraceRecord{
		record("a", "acme", 10),
		record("b", "TEST", 10),
		record("c", "demo-co", 10),
		record("d", "globex", 10),
	}

	filtered := FilterExcluded(records, excl)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 records after filtering, got %d", len(filtered))
	}
	if filtered[0].CustomerKey != "acme" || filtered[1].CustomerKey != "globex" {
		t.Errorf("unexpected records: %+v", filtered)
	}

	// Nil exclusions pass everything through untouched.
	if got := FilterExcluded(records, nil); len(got) != len(records) {
		t.Errorf("nil exclusions must not filter, got %d records", len(got))
	}
}
