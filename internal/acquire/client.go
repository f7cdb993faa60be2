// Package acquire fetches listing pages from the marketplace search
// API using a browser-harvested session, escalating to a full browser
// fetch when the direct path is blocked.
package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"encarwatch/internal/domain"
)

// Harvester is the browser surface the client needs: building a fresh
// session and driving an API URL when the direct path is proxied off.
type Harvester interface {
	HarvestSession(ctx context.Context, homeURL string, ttl time.Duration) (*domain.Session, error)
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// Options configures the acquisition client.
type Options struct {
	APIHost        string
	HomeURL        string
	PageSize       int
	MaxAttempts    int
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	InterPageDelay time.Duration
}

// Client fetches search pages. A single mutex serializes session
// rebuilds so concurrent callers never race two browsers.
type Client struct {
	opts      Options
	http      *http.Client
	harvester Harvester
	cache     domain.SessionCache // optional mirror, may be nil
	logger    *slog.Logger

	mu      sync.Mutex
	session *domain.Session
}

// NewClient builds an acquisition client. cache may be nil.
func NewClient(opts Options, h Harvester, cache domain.SessionCache, logger *slog.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	return &Client{
		opts:      opts,
		http:      &http.Client{Timeout: opts.RequestTimeout},
		harvester: h,
		cache:     cache,
		logger:    logger.With(slog.String("component", "acquire")),
	}
}

// Page is one fetched slice of search results plus the total count the
// API reported and the raw payload for archiving.
type Page struct {
	Items []RawItem
	Total int
	Raw   []byte
}

// FetchPage retrieves one page of results, escalating through the
// fallback chain:
//
//  1. direct HTTP with the harvested session
//  2. on 407, the same URL through the browser (session kept)
//  3. on 401/403 or a failed fallback, rebuild the session and retry
//
// After MaxAttempts failed attempts the fetch is abandoned.
func (c *Client) FetchPage(ctx context.Context, spec FilterSpec, offset int) (*Page, error) {
	url := SearchURL(c.opts.APIHost, spec, offset, c.opts.PageSize)

	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrContextDone
		}

		sess, err := c.currentSession(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		body, status, err := c.direct(ctx, url, sess)
		if err != nil {
			lastErr = &domain.AcquisitionError{Kind: domain.AcqNetwork, Attempts: attempt, Err: err}
			c.logger.Warn("direct fetch failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}
		lastStatus = status

		switch {
		case status == http.StatusOK:
			return ParsePage(body)

		case status == http.StatusProxyAuthRequired:
			// The API is gating the direct path; the browser itself
			// still gets through. No session rebuild on success.
			c.logger.Info("direct path blocked, using browser fallback", slog.Int("attempt", attempt))
			fbBody, fbErr := c.harvester.FetchJSON(ctx, url)
			if fbErr == nil {
				return ParsePage(fbBody)
			}
			lastErr = &domain.AcquisitionError{Kind: domain.AcqRejected, Status: status, Attempts: attempt, Err: fbErr}
			c.invalidate(ctx)

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			c.logger.Warn("session rejected", slog.Int("status", status), slog.Int("attempt", attempt))
			lastErr = &domain.AcquisitionError{Kind: domain.AcqRejected, Status: status, Attempts: attempt, Err: domain.ErrSessionExpired}
			c.invalidate(ctx)

		default:
			lastErr = &domain.AcquisitionError{Kind: domain.AcqRejected, Status: status, Attempts: attempt,
				Err: fmt.Errorf("unexpected status %d", status)}
			c.logger.Warn("unexpected response", slog.Int("status", status), slog.Int("attempt", attempt))
		}
	}

	return nil, &domain.AcquisitionError{
		Kind:     domain.AcqExhausted,
		Status:   lastStatus,
		Attempts: c.opts.MaxAttempts,
		Err:      fmt.Errorf("all attempts failed: %w", lastErr),
	}
}

// FetchPages retrieves up to maxPages pages, stopping early when the
// reported total is covered. Pages are spaced by the inter-page delay.
func (c *Client) FetchPages(ctx context.Context, spec FilterSpec, maxPages int) ([]*Page, error) {
	var pages []*Page
	for i := 0; i < maxPages; i++ {
		if i > 0 && c.opts.InterPageDelay > 0 {
			select {
			case <-ctx.Done():
				return pages, domain.ErrContextDone
			case <-time.After(c.opts.InterPageDelay):
			}
		}

		page, err := c.FetchPage(ctx, spec, i*c.opts.PageSize)
		if err != nil {
			// Earlier pages are still good data.
			return pages, err
		}
		pages = append(pages, page)

		if (i+1)*c.opts.PageSize >= page.Total || len(page.Items) == 0 {
			break
		}
	}
	return pages, nil
}

// ParsePage decodes one raw search payload. Also used to re-feed
// archived payloads through the pipeline without touching the
// marketplace.
func ParsePage(body []byte) (*Page, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("acquire: decode search response: %w", err)
	}
	return &Page{Items: resp.SearchResults, Total: resp.Count, Raw: body}, nil
}

// direct performs the plain HTTP request with the session's cookies and
// headers attached.
func (c *Client) direct(ctx context.Context, url string, sess *domain.Session) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range sess.Headers {
		req.Header.Set(k, v)
	}
	if sess.UserAgent != "" {
		req.Header.Set("User-Agent", sess.UserAgent)
	}
	req.Header.Set("Cookie", sess.CookieHeader())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// currentSession returns a valid session, harvesting one if needed.
func (c *Client) currentSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.session.Valid(now) {
		return c.session, nil
	}

	// Try the cached mirror first so a restart skips the browser.
	if c.cache != nil {
		if sess, err := c.cache.GetSession(ctx); err == nil && sess.Valid(now) {
			c.session = sess
			return sess, nil
		}
	}

	sess, err := c.harvester.HarvestSession(ctx, c.opts.HomeURL, c.opts.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire: harvest session: %w", err)
	}
	c.session = sess
	if c.cache != nil {
		if err := c.cache.SetSession(ctx, sess); err != nil {
			c.logger.Warn("session cache write failed", slog.String("error", err.Error()))
		}
	}
	return sess, nil
}

// invalidate drops the current session so the next attempt harvests a
// fresh one.
func (c *Client) invalidate(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	if c.cache != nil {
		if err := c.cache.InvalidateSession(ctx); err != nil {
			c.logger.Warn("session cache invalidate failed", slog.String("error", err.Error()))
		}
	}
}
