// Package kraken is the signed REST client for the Kraken Futures API. It
// covers only the read-only account surface the dashboard needs: account
// logs, execution events, open positions, tickers, funding rates, and fee
// schedules.
package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alexvgr/krakendash/internal/crypto"
	"github.com/alexvgr/krakendash/internal/domain"
)

const (
	// DefaultBaseURL is the production Kraken Futures API root.
	DefaultBaseURL = "https://futures.kraken.com"

	defaultHTTPTimeout    = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultMinRequestGap  = 250 * time.Millisecond
)

// Config holds the tunable parameters of the client. Zero values fall back
// to the defaults above.
type Config struct {
	BaseURL        string
	HTTPTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	MinRequestGap  time.Duration
}

// Client is a stateless-per-call signed REST client. The only shared state
// is the pacer, which serializes request timing across all calls on the same
// instance so bursts of concurrent fetches do not trip the exchange's limits.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryBase  time.Duration
	pacer      *pacer
	logger     *slog.Logger
}

// NewClient creates a Kraken Futures REST client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.MinRequestGap < 0 {
		cfg.MinRequestGap = 0
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBaseDelay,
		pacer:      newPacer(cfg.MinRequestGap),
		logger:     logger.With(slog.String("component", "kraken")),
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// get performs a signed GET against path, retrying rate-limit and transient
// network failures with exponential backoff. The decoded JSON body is
// unmarshaled into out.
func (c *Client) get(ctx context.Context, creds domain.Credentials, path string, query url.Values, out any) error {
	queryStr := ""
	if len(query) > 0 {
		queryStr = query.Encode()
	}

	fullURL := c.baseURL + path
	if queryStr != "" {
		fullURL += "?" + queryStr
	}

	delay := c.retryBase
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WarnContext(ctx, "retrying request",
				slog.String("path", path),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}

		if err := c.pacer.wait(ctx); err != nil {
			return err
		}

		err := c.do(ctx, creds, path, queryStr, fullURL, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("kraken: %s: giving up after %d attempts: %w", path, c.maxRetries, lastErr)
}

// do executes a single signed request attempt. The nonce is generated per
// attempt so retries never reuse one.
func (c *Client) do(ctx context.Context, creds domain.Credentials, path, queryStr, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("kraken: create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	// Public endpoints are called with empty credentials and go unsigned.
	if creds.APIKey != "" {
		for k, v := range crypto.Headers(creds.APIKey, creds.APISecret, queryStr, path) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("kraken: %s: %w: %v", path, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kraken: %s: read response: %w: %v", path, domain.ErrTransient, err)
	}

	if err := checkStatus(path, resp.StatusCode, body); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("kraken: %s: decode response: %w", path, err)
		}
	}

	return nil
}

// checkStatus maps non-2xx statuses and in-body API errors to typed errors.
func checkStatus(path string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		// 200 responses can still carry an API-level error field.
		var apiResp struct {
			Result string `json:"result"`
			Error  string `json:"error"`
		}
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != "" {
			return apiError(path, apiResp.Error)
		}
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("kraken: %s: %w: %s", path, domain.ErrUnauthorized, apiErr.Error)
	case http.StatusTooManyRequests:
		return fmt.Errorf("kraken: %s: %w: %s", path, domain.ErrRateLimited, apiErr.Error)
	case http.StatusNotFound:
		return fmt.Errorf("kraken: %s: %w", path, domain.ErrNotFound)
	default:
		if statusCode >= 500 {
			return fmt.Errorf("kraken: %s: HTTP %d: %w: %s", path, statusCode, domain.ErrTransient, apiErr.Error)
		}
		return fmt.Errorf("kraken: %s: HTTP %d: %s", path, statusCode, apiErr.Error)
	}
}

// apiError classifies the exchange's in-body error strings.
func apiError(path, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "apilimitexceeded") || strings.Contains(lower, "rate limit"):
		return fmt.Errorf("kraken: %s: %w: %s", path, domain.ErrRateLimited, msg)
	case strings.Contains(lower, "invalid key") || strings.Contains(lower, "invalid signature") ||
		strings.Contains(lower, "permission denied") || strings.Contains(lower, "authenticationerror"):
		return fmt.Errorf("kraken: %s: %w: %s", path, domain.ErrUnauthorized, msg)
	default:
		return fmt.Errorf("kraken: %s: api error: %s", path, msg)
	}
}

// retryable reports whether an error is worth another attempt. Auth errors
// never are; rate limits and transient transport failures are.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrTransient)
}

// sleepCtx sleeps for d, returning early with the context error if the
// context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer enforces a minimum interval between requests across goroutines.
type pacer struct {
	mu   sync.Mutex
	gap  time.Duration
	next time.Time
}

func newPacer(gap time.Duration) *pacer {
	return &pacer{gap: gap}
}

// wait blocks until this caller's turn. Slots are handed out under the lock
// so concurrent callers are serialized in arrival order.
func (p *pacer) wait(ctx context.Context) error {
	if p.gap <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.gap)
	p.mu.Unlock()

	if d := time.Until(slot); d > 0 {
		return sleepCtx(ctx, d)
	}
	return nil
}
