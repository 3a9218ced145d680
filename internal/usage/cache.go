package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/opsdash/agent-usage-tui/internal/langfuse"
	"github.com/opsdash/agent-usage-tui/internal/models"
)

// FetchFunc retrieves raw trace records for an agent and window. The
// services manager binds this to the langfuse client with resolved
// credentials.
type FetchFunc func(ctx context.Context, agentName string, window models.TimeWindow) (langfuse.FetchResult, error)

// cacheKey identifies one distinct query.
type cacheKey struct {
	agent string
	start int64
	end   int64
}

func newCacheKey(agent string, window models.TimeWindow) cacheKey {
	return cacheKey{agent: agent, start: window.Start.UnixNano(), end: window.End.UnixNano()}
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%d|%d", k.agent, k.start, k.end)
}

type cacheEntry struct {
	summary   models.Summary
	fetchedAt time.Time
}

// Cache wraps fetch+aggregate behind a TTL keyed by (agent, window). It is
// in-process only; entries are evicted lazily on lookup and concurrent
// misses for the same key share a single upstream fetch.
type Cache struct {
	mu         sync.Mutex
	entries    map[cacheKey]cacheEntry
	group      singleflight.Group
	fetch      FetchFunc
	exclusions Exclusions
	ttl        time.Duration

	// now is swapped out in tests to control TTL expiry.
	now func() time.Time
}

// NewCache creates a cache over the given fetch function.
func NewCache(fetch FetchFunc, ttl time.Duration, exclusions Exclusions) *Cache {
	return &Cache{
		entries:    make(map[cacheKey]cacheEntry),
		fetch:      fetch,
		exclusions: exclusions,
		ttl:        ttl,
		now:        time.Now,
	}
}

// GetOrFetch returns the cached summary for the query when it is younger
// than the TTL, fetching and aggregating otherwise. Errors are never
// cached: a failed fetch leaves no entry behind.
func (c *Cache) GetOrFetch(ctx context.Context, agentName string, window models.TimeWindow) (models.Summary, error) {
	key := newCacheKey(agentName, window)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Sub(entry.fetchedAt) < c.ttl {
			c.mu.Unlock()
			return entry.summary, nil
		}
		// Expired; lazy eviction
		delete(c.entries, key)
	}
	c.mu.Unlock()

	return c.fetchAndStore(ctx, key, agentName, window)
}

// Refresh bypasses the freshness check and forces a re-fetch, writing
// through the same cache slot so subsequent lookups benefit.
func (c *Cache) Refresh(ctx context.Context, agentName string, window models.TimeWindow) (models.Summary, error) {
	key := newCacheKey(agentName, window)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return c.fetchAndStore(ctx, key, agentName, window)
}

// fetchAndStore performs the upstream fetch under a per-key singleflight so
// overlapping triggers (auto-refresh firing during a manual refresh) never
// hit the upstream API redundantly; late arrivals await and reuse the
// in-flight result.
func (c *Cache) fetchAndStore(ctx context.Context, key cacheKey, agentName string, window models.TimeWindow) (models.Summary, error) {
	value, err, _ := c.group.Do(key.String(), func() (any, error) {
		result, err := c.fetch(ctx, agentName, window)
		if err != nil {
			return nil, err
		}

		summary := models.Summary{
			AgentName:    agentName,
			Window:       window,
			Rows:         Aggregate(FilterExcluded(result.Records, c.exclusions)),
			DroppedCount: result.Dropped,
			FetchedAt:    c.now(),
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{summary: summary, fetchedAt: summary.FetchedAt}
		c.mu.Unlock()

		return summary, nil
	})
	if err != nil {
		return models.Summary{}, err
	}
	return value.(models.Summary), nil
}

// Cached returns the stored summary for the query regardless of freshness,
// used to keep stale data on screen behind an error banner.
func (c *Cache) Cached(agentName string, window models.TimeWindow) (models.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[newCacheKey(agentName, window)]
	return entry.summary, ok
}

// Len returns the number of live entries, for stats display.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
