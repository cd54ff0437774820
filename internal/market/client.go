package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://query2.finance.yahoo.com"
	defaultCookieURL = "https://fc.yahoo.com"
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2 // requests per second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// summaryModules are the quoteSummary modules a snapshot is built from, in
// merge order: a key found in several modules takes the value of the last.
var summaryModules = []string{
	"financialData",
	"defaultKeyStatistics",
	"assetProfile",
	"summaryDetail",
	"price",
	"recommendationTrend",
}

// Client is a rate-limited client for the Yahoo Finance quoteSummary API.
type Client struct {
	baseURL   string
	cookieURL string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCookieURL sets the URL visited to obtain the session cookie.
func WithCookieURL(cookieURL string) ClientOption {
	return func(c *Client) {
		c.cookieURL = cookieURL
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Yahoo Finance client. Each client keeps its own
// cookie jar so the crumb handshake is scoped to it.
func NewClient(opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:   defaultBaseURL,
		cookieURL: defaultCookieURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo finance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Snapshot fetches and normalizes the market data of symbol.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	resp, err := c.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(resp), nil
}

// Fetch performs the cookie and crumb handshake and then a single
// quoteSummary request. Failures are returned as-is; there are no retries.
func (c *Client) Fetch(ctx context.Context, symbol string) (*Response, error) {
	crumb, err := c.crumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining crumb: %w", err)
	}

	q := url.Values{}
	q.Set("modules", strings.Join(summaryModules, ","))
	q.Set("crumb", crumb)
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)

	body, err := c.get(ctx, c.baseURL+path+"?"+q.Encode(), path)
	if err != nil {
		return nil, fmt.Errorf("fetching quote summary for %s: %w", symbol, err)
	}

	var raw quoteSummaryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing quote summary: %w", err)
	}
	if e := raw.QuoteSummary.Error; e != nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: e.Code + ": " + e.Description, Endpoint: path}
	}
	if len(raw.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote summary returned for %s", symbol)
	}

	resp, err := flatten(symbol, raw.QuoteSummary.Result[0])
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched quote summary",
		zap.String("symbol", symbol),
		zap.Int("fields", len(resp.Info)),
		zap.Int("recommendation_periods", len(resp.Recommendations)))

	return resp, nil
}

// crumb visits the cookie URL so the jar holds a session cookie, then asks
// for the crumb bound to that session.
func (c *Client) crumb(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching session cookie: %w", err)
	}
	// The cookie endpoint answers 404 while still setting the cookie.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	body, err := c.get(ctx, c.baseURL+"/v1/test/getcrumb", "/v1/test/getcrumb")
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.HasPrefix(crumb, "<") {
		return "", fmt.Errorf("unexpected crumb response")
	}
	return crumb, nil
}

// get performs a rate-limited GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, urlStr, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(body)),
			Endpoint:   endpoint,
		}
	}
	return body, nil
}
