// Package services wires the credential resolver, trace client, cache and
// snapshot store together and exposes their activity as events for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/opsdash/agent-usage-tui/internal/config"
	"github.com/opsdash/agent-usage-tui/internal/credentials"
	"github.com/opsdash/agent-usage-tui/internal/db"
	"github.com/opsdash/agent-usage-tui/internal/langfuse"
	"github.com/opsdash/agent-usage-tui/internal/logger"
	"github.com/opsdash/agent-usage-tui/internal/models"
	"github.com/opsdash/agent-usage-tui/internal/usage"
)

type (
	// SummaryUpdatedEvent is emitted when a usage summary has been fetched
	// or served from cache.
	SummaryUpdatedEvent struct {
		Summary models.Summary
	}

	// RefreshingEvent is emitted when a refresh begins.
	RefreshingEvent struct {
		Period models.Period
	}

	// RefreshErrorEvent is emitted when a refresh fails. LastGood carries
	// the most recent successful summary, if any, so the UI can keep stale
	// data on screen behind an error banner.
	RefreshErrorEvent struct {
		Err      error
		LastGood *models.Summary
	}

	// CredentialsReloadedEvent is emitted after the secrets file changes
	// and the resolver cache has been invalidated.
	CredentialsReloadedEvent struct{}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SummaryUpdatedEvent) isServiceEvent()      {}
func (RefreshingEvent) isServiceEvent()          {}
func (RefreshErrorEvent) isServiceEvent()        {}
func (CredentialsReloadedEvent) isServiceEvent() {}

// upstreamFailureNotifyThreshold is the consecutive-failure count that
// triggers a desktop notification for connectivity problems.
const upstreamFailureNotifyThreshold = 3

// TraceFetcher abstracts the trace client for testing.
type TraceFetcher interface {
	FetchTraces(ctx context.Context, creds credentials.Credentials, agentName string, window models.TimeWindow) (langfuse.FetchResult, error)
}

// Manager owns the query state (agent, selected period) and orchestrates
// fetching, aggregation, caching and snapshot persistence.
type Manager struct {
	mu       sync.RWMutex
	cfg      *config.Config
	resolver *credentials.Resolver
	watcher  *credentials.Watcher
	client   TraceFetcher
	cache    *usage.Cache
	database *db.DB

	period      models.Period
	customStart time.Time
	customEnd   time.Time

	// The resolved window is pinned between refreshes so that repeated
	// loads inside the cache TTL share one cache key; a window ending at
	// "now" would otherwise change on every call.
	window           models.TimeWindow
	windowResolvedAt time.Time

	lastGood      *models.Summary
	failureStreak int

	eventChan chan ServiceEvent
	stopChan  chan struct{}
}

// NewManager creates the service manager and starts the auto-refresh loop.
func NewManager(cfg *config.Config) (*Manager, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	m := &Manager{
		cfg:      cfg,
		resolver: credentials.NewDefaultResolver(credentials.Credentials{}, cfg.SecretsPath),
		client: langfuse.NewClient(langfuse.Config{
			RequestTimeout: cfg.RequestTimeout,
			PageSize:       cfg.PageSize,
			MaxPages:       cfg.MaxPages,
			MaxAttempts:    3,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  8 * time.Second,
		}),
		database:  database,
		period:    models.PeriodToday,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
	}
	m.cache = usage.NewCache(m.fetch, cfg.CacheTTL, usage.NewExclusions(cfg.ExcludedCustomers))

	// Credential rotation without restart; a missing secrets directory is
	// not fatal, env credentials still work.
	watcher, err := credentials.NewWatcher(m.resolver, cfg.SecretsPath, func() {
		m.sendEvent(CredentialsReloadedEvent{})
	})
	if err != nil {
		logger.Warn("secrets file watching disabled", "path", cfg.SecretsPath, "error", err)
	} else {
		m.watcher = watcher
	}

	go m.autoRefreshLoop()

	return m, nil
}

// fetch binds the trace client to freshly-resolved credentials; it is the
// cache layer's upstream.
func (m *Manager) fetch(ctx context.Context, agentName string, window models.TimeWindow) (langfuse.FetchResult, error) {
	creds, err := m.resolver.Resolve()
	if err != nil {
		return langfuse.FetchResult{}, err
	}
	return m.client.FetchTraces(ctx, creds, agentName, window)
}

// Events returns the event channel.
func (m *Manager) Events() <-chan ServiceEvent {
	return m.eventChan
}

// AgentName returns the monitored agent.
func (m *Manager) AgentName() string {
	return m.cfg.AgentName
}

// Config returns the loaded configuration, for the info tab.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// CredentialSource names the source the active credentials came from, or
// "" before the first successful resolution. Key material is never exposed.
func (m *Manager) CredentialSource() string {
	return m.resolver.SourceName()
}

// Period returns the currently selected reporting period.
func (m *Manager) Period() models.Period {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.period
}

// SetPeriod switches the reporting period. For PeriodCustom the bounds must
// satisfy start < end; they are validated on the next window resolution.
func (m *Manager) SetPeriod(p models.Period, customStart, customEnd time.Time) {
	m.mu.Lock()
	m.period = p
	m.customStart = customStart
	m.customEnd = customEnd
	m.windowResolvedAt = time.Time{}
	m.mu.Unlock()
}

// CurrentWindow returns the window the next load will query: the pinned
// window while it is fresh, or a newly resolved one.
func (m *Manager) CurrentWindow() (models.TimeWindow, error) {
	return m.queryWindow(false)
}

// queryWindow resolves the selected period, reusing the previous resolution
// while it is younger than the cache TTL so cache keys stay stable.
func (m *Manager) queryWindow(force bool) (models.TimeWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force && !m.windowResolvedAt.IsZero() && time.Since(m.windowResolvedAt) < m.cfg.CacheTTL {
		return m.window, nil
	}

	window, err := models.ResolveWindow(m.period, time.Now(), m.customStart, m.customEnd)
	if err != nil {
		return models.TimeWindow{}, err
	}
	m.window = window
	m.windowResolvedAt = time.Now()
	return window, nil
}

// Load serves the current period's summary, going upstream only when the
// cached entry is missing or stale.
func (m *Manager) Load(ctx context.Context) (models.Summary, error) {
	return m.run(ctx, m.cache.GetOrFetch, false)
}

// ForceRefresh bypasses cache freshness for the current period, writing the
// fresh result through the same cache slot.
func (m *Manager) ForceRefresh(ctx context.Context) (models.Summary, error) {
	return m.run(ctx, m.cache.Refresh, true)
}

func (m *Manager) run(ctx context.Context, op func(context.Context, string, models.TimeWindow) (models.Summary, error), force bool) (models.Summary, error) {
	window, err := m.queryWindow(force)
	if err != nil {
		return models.Summary{}, err
	}

	m.sendEvent(RefreshingEvent{Period: m.Period()})

	summary, err := op(ctx, m.cfg.AgentName, window)
	if err != nil {
		m.handleRefreshError(err)
		return models.Summary{}, err
	}

	m.mu.Lock()
	m.lastGood = &summary
	m.failureStreak = 0
	m.mu.Unlock()

	if err := m.database.InsertSnapshot(ctx, summary); err != nil {
		// History is best-effort; the summary itself is still good.
		logger.Error("failed to persist usage snapshot", "error", err)
	}

	m.sendEvent(SummaryUpdatedEvent{Summary: summary})
	return summary, nil
}

func (m *Manager) handleRefreshError(err error) {
	m.mu.Lock()
	m.failureStreak++
	streak := m.failureStreak
	lastGood := m.lastGood
	m.mu.Unlock()

	logger.Error("usage refresh failed", "agent", m.cfg.AgentName, "error", err)

	var authErr *langfuse.AuthError
	switch {
	case errors.As(err, &authErr):
		_ = beeep.Notify("Agent Usage Dashboard",
			"Authentication failed: check your tracing API credentials", "")
	case streak == upstreamFailureNotifyThreshold:
		_ = beeep.Notify("Agent Usage Dashboard",
			fmt.Sprintf("Usage data unavailable after %d attempts", streak), "")
	}

	m.sendEvent(RefreshErrorEvent{Err: err, LastGood: lastGood})
}

// LastGood returns the most recent successful summary, or nil.
func (m *Manager) LastGood() *models.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastGood
}

// History returns the conversation trend for the monitored agent over the
// trailing seven days.
func (m *Manager) History(ctx context.Context) ([]db.HistoryPoint, error) {
	return m.database.History(ctx, m.cfg.AgentName, time.Now().Add(-7*24*time.Hour))
}

// ExportCSV writes the last good summary to a CSV file in dir (the working
// directory when empty) and returns the written path.
func (m *Manager) ExportCSV(dir string) (string, error) {
	summary := m.LastGood()
	if summary == nil {
		return "", fmt.Errorf("no usage data to export yet")
	}

	name := fmt.Sprintf("agent_usage_%s_%s.csv",
		m.Period().Key(), time.Now().Format("20060102"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close export file", "error", err)
		}
	}()

	if err := models.WriteCSV(f, summary.Rows); err != nil {
		return "", err
	}
	return path, nil
}

// autoRefreshLoop periodically re-loads the current period. Staleness is
// governed by the cache TTL, so a tick inside the TTL is served locally.
func (m *Manager) autoRefreshLoop() {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout*time.Duration(m.cfg.MaxPages))
			_, _ = m.Load(ctx)
			cancel()
		case <-m.stopChan:
			return
		}
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (m *Manager) sendEvent(event ServiceEvent) {
	select {
	case m.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-m.eventChan:
		default:
		}
		select {
		case m.eventChan <- event:
		default:
		}
	}
}

// Close stops background work and releases resources.
func (m *Manager) Close() error {
	close(m.stopChan)

	var errs []error
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close secrets watcher: %w", err))
		}
	}
	if err := m.database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
