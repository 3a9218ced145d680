// Package langfuse implements the HTTP client for the tracing service's
// public traces API: paginated listing, authentication, and the retry
// policy for transient failures.
package langfuse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/opsdash/agent-usage-tui/internal/credentials"
	"github.com/opsdash/agent-usage-tui/internal/logger"
	"github.com/opsdash/agent-usage-tui/internal/models"
)

const tracesPath = "/api/public/traces"

// Config holds tunables for the trace client.
type Config struct {
	RequestTimeout time.Duration
	PageSize       int
	MaxPages       int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		PageSize:       50,
		MaxPages:       100,
		MaxAttempts:    3,
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  8 * time.Second,
	}
}

// FetchResult is the flattened outcome of one paginated query.
type FetchResult struct {
	Records []models.TraceRecord
	// Dropped counts records excluded for missing a trace id or usable
	// timestamp, or for not matching the requested agent.
	Dropped int
}

// Client fetches trace records from the tracing service.
type Client struct {
	httpClient *http.Client
	config     Config
	retry      retrypolicy.RetryPolicy[*tracesPage]
}

// NewClient creates a trace client.
func NewClient(cfg Config) *Client {
	if cfg.PageSize <= 0 || cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	// MaxAttempts counts the initial try; the policy counts retries.
	retry := retrypolicy.NewBuilder[*tracesPage]().
		HandleIf(func(_ *tracesPage, err error) bool { return retryable(err) }).
		WithMaxRetries(cfg.MaxAttempts - 1).
		WithBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay).
		ReturnLastFailure().
		Build()

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		config:     cfg,
		retry:      retry,
	}
}

// FetchTraces retrieves all trace records for the agent inside the window,
// walking pagination up to the configured page cap.
func (c *Client) FetchTraces(ctx context.Context, creds credentials.Credentials, agentName string, window models.TimeWindow) (FetchResult, error) {
	var result FetchResult

	for page := 1; page <= c.config.MaxPages; page++ {
		resp, err := failsafe.With(c.retry).WithContext(ctx).Get(func() (*tracesPage, error) {
			return c.fetchPage(ctx, creds, agentName, window, page)
		})
		if err != nil {
			return FetchResult{}, err
		}

		if len(resp.Data) == 0 {
			break
		}

		for _, dto := range resp.Data {
			record, ok := dto.toRecord(agentName)
			if !ok {
				result.Dropped++
				continue
			}
			result.Records = append(result.Records, record)
		}

		if !resp.hasMore(page, c.config.PageSize) {
			break
		}
		if page == c.config.MaxPages {
			logger.Warn("reached page cap before exhausting pagination",
				"agent", agentName, "maxPages", c.config.MaxPages, "records", len(result.Records))
		}
	}

	return result, nil
}

// fetchPage issues a single authenticated page request and maps the
// response status to the error taxonomy.
func (c *Client) fetchPage(ctx context.Context, creds credentials.Credentials, agentName string, window models.TimeWindow, page int) (*tracesPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.config.PageSize))
	params.Set("name", agentName)
	params.Set("fromTimestamp", window.Start.UTC().Format(time.RFC3339))
	params.Set("toTimestamp", window.End.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		creds.BaseURL+tracesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create traces request: %w", err)
	}
	req.SetBasicAuth(creds.PublicKey, creds.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Parsed below
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var pageResp tracesPage
	if err := json.Unmarshal(body, &pageResp); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode,
			Err: fmt.Errorf("failed to parse traces response: %w", err)}
	}

	return &pageResp, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// tracesPage mirrors the paginated wire format of the traces endpoint.
type tracesPage struct {
	Data []traceDTO `json:"data"`
	Meta pageMeta   `json:"meta"`
}

type pageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// hasMore reports whether pagination should continue after the given page.
// Prefers the server's totalPages; falls back to "page was full" for
// servers that omit pagination metadata.
func (p *tracesPage) hasMore(page, pageSize int) bool {
	if p.Meta.TotalPages > 0 {
		return page < p.Meta.TotalPages
	}
	return len(p.Data) >= pageSize
}

// traceDTO is one raw trace as returned by the API.
type traceDTO struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Timestamp string         `json:"timestamp"`
	CreatedAt string         `json:"createdAt"`
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	Metadata  map[string]any `json:"metadata"`
}

// customerKey derives the grouping identity. Resolution order: the
// customer/company metadata fields, then the user id, then the session id.
// Returns "" when nothing usable is present; the aggregator coalesces
// those into the sentinel "unknown" group.
func (d traceDTO) customerKey() string {
	for _, key := range []string{"company_name", "companyName", "company"} {
		if value, ok := d.Metadata[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	if trimmed := strings.TrimSpace(d.UserID); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(d.SessionID)
}

// parseTimestamp returns the trace timestamp, falling back to createdAt.
func (d traceDTO) parseTimestamp() (time.Time, bool) {
	for _, raw := range []string{d.Timestamp, d.CreatedAt} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// toRecord converts the DTO to a TraceRecord. Records without a trace id or
// parseable timestamp are unusable; records carrying a different agent name
// are dropped defensively even though the server filters on name.
func (d traceDTO) toRecord(agentName string) (models.TraceRecord, bool) {
	if d.ID == "" {
		return models.TraceRecord{}, false
	}
	ts, ok := d.parseTimestamp()
	if !ok {
		return models.TraceRecord{}, false
	}
	if d.Name != "" && d.Name != agentName {
		return models.TraceRecord{}, false
	}

	return models.TraceRecord{
		TraceID:     d.ID,
		CustomerKey: d.customerKey(),
		Timestamp:   ts,
		AgentName:   agentName,
	}, true
}
