package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsdash/agent-usage-tui/internal/config"
	"github.com/opsdash/agent-usage-tui/internal/credentials"
	"github.com/opsdash/agent-usage-tui/internal/langfuse"
	"github.com/opsdash/agent-usage-tui/internal/models"
)

// fakeFetcher implements TraceFetcher for testing.
type fakeFetcher struct {
	calls  atomic.Int64
	result langfuse.FetchResult
	err    error
}

func (f *fakeFetcher) FetchTraces(_ context.Context, _ credentials.Credentials, _ string, _ models.TimeWindow) (langfuse.FetchResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return langfuse.FetchResult{}, f.err
	}
	return f.result, nil
}

func testManager(t *testing.T, fetcher TraceFetcher) *Manager {
	t.Helper()

	tmp := t.TempDir()
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-test")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk-test")
	t.Setenv("LANGFUSE_BASE_URL", "")

	cfg := &config.Config{
		AgentName:       "ProjectManager",
		DatabasePath:    filepath.Join(tmp, "usage.db"),
		SecretsPath:     filepath.Join(tmp, "secrets.toml"),
		CacheTTL:        5 * time.Minute,
		RefreshInterval: time.Hour, // keep the auto-refresh loop quiet in tests
		RequestTimeout:  time.Second,
		PageSize:        50,
		MaxPages:        100,
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("failed to close manager: %v", err)
		}
	})

	if fetcher != nil {
		m.client = fetcher
	}
	return m
}

// drainEvents collects events until the wanted type shows up or times out.
func awaitEvent[E ServiceEvent](t *testing.T, m *Manager) E {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if wanted, ok := ev.(E); ok {
				return wanted
			}
		case <-deadline:
			var zero E
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestManager_LoadEmitsSummary(t *testing.T) {
	fetcher := &fakeFetcher{result: langfuse.FetchResult{
		Records: []models.TraceRecord{
			{TraceID: "a", CustomerKey: "acme", Timestamp: time.Now().UTC()},
		},
		Dropped: 2,
	}}
	m := testManager(t, fetcher)

	summary, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(summary.Rows) != 1 || summary.Rows[0].CustomerKey != "acme" {
		t.Errorf("unexpected rows: %+v", summary.Rows)
	}
	if summary.DroppedCount != 2 {
		t.Errorf("expected dropped count 2, got %d", summary.DroppedCount)
	}

	updated := awaitEvent[SummaryUpdatedEvent](t, m)
	if updated.Summary.AgentName != "ProjectManager" {
		t.Errorf("unexpected agent in event: %s", updated.Summary.AgentName)
	}

	if m.LastGood() == nil {
		t.Error("expected last good summary recorded")
	}
}

func TestManager_CachedLoadSkipsUpstream(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := testManager(t, fetcher)

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call for repeated loads, got %d", got)
	}

	if _, err := m.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected forced refresh to hit upstream, got %d calls", got)
	}
}

func TestManager_RefreshErrorKeepsLastGood(t *testing.T) {
	fetcher := &fakeFetcher{result: langfuse.FetchResult{
		Records: []models.TraceRecord{
			{TraceID: "a", CustomerKey: "acme", Timestamp: time.Now().UTC()},
		},
	}}
	m := testManager(t, fetcher)

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fetcher.err = &langfuse.UpstreamError{StatusCode: 502, Err: errors.New("bad gateway")}
	if _, err := m.ForceRefresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	ev := awaitEvent[RefreshErrorEvent](t, m)
	if ev.LastGood == nil {
		t.Fatal("expected last good summary alongside the error")
	}
	if ev.LastGood.Rows[0].CustomerKey != "acme" {
		t.Errorf("unexpected last good rows: %+v", ev.LastGood.Rows)
	}
}

func TestManager_SetPeriodChangesWindow(t *testing.T) {
	m := testManager(t, &fakeFetcher{})

	m.SetPeriod(models.PeriodThisMonth, time.Time{}, time.Time{})
	window, err := m.CurrentWindow()
	if err != nil {
		t.Fatalf("CurrentWindow failed: %v", err)
	}
	if window.Start.Day() != 1 {
		t.Errorf("expected month window to start on day 1, got %v", window.Start)
	}

	m.SetPeriod(models.PeriodCustom, time.Time{}, time.Time{})
	if _, err := m.CurrentWindow(); err == nil {
		t.Error("expected error for custom period without bounds")
	}
}

func TestManager_PeriodChangeIsSeparateCacheKey(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := testManager(t, fetcher)

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	m.SetPeriod(models.PeriodCustom, start, end)

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected new window to fetch separately, got %d calls", got)
	}
}

func TestManager_HistoryRecordsSnapshots(t *testing.T) {
	fetcher := &fakeFetcher{result: langfuse.FetchResult{
		Records: []models.TraceRecord{
			{TraceID: "a", CustomerKey: "acme", Timestamp: time.Now().UTC()},
			{TraceID: "b", CustomerKey: "acme", Timestamp: time.Now().UTC()},
		},
	}}
	m := testManager(t, fetcher)

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	points, err := m.History(context.Background())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 || points[0].TotalConversations != 2 {
		t.Errorf("unexpected history: %+v", points)
	}
}

func TestManager_ExportCSV(t *testing.T) {
	fetcher := &fakeFetcher{result: langfuse.FetchResult{
		Records: []models.TraceRecord{
			{TraceID: "a", CustomerKey: "acme", Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		},
	}}
	m := testManager(t, fetcher)

	if _, err := m.ExportCSV(t.TempDir()); err == nil {
		t.Error("expected export to fail before any data is loaded")
	}

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := t.TempDir()
	path, err := m.ExportCSV(dir)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "agent_usage_today_") {
		t.Errorf("unexpected export filename: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "customer,conversation_count,last_active\n") {
		t.Errorf("missing CSV header: %q", content)
	}
	if !strings.Contains(content, "acme,1,2025-06-01T10:00:00Z") {
		t.Errorf("missing row: %q", content)
	}
}

func TestManager_MissingCredentialsSurface(t *testing.T) {
	m := testManager(t, nil)

	// Wipe the env credentials and force re-resolution.
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")
	m.resolver = credentials.NewDefaultResolver(credentials.Credentials{},
		filepath.Join(t.TempDir(), "missing.toml"))

	_, err := m.Load(context.Background())
	var missingErr *credentials.MissingCredentialsError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingCredentialsError, got %v", err)
	}
}
