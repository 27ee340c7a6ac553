package contentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client defaults.
const (
	// DefaultBaseURL is the GOV.UK search API endpoint.
	DefaultBaseURL = "https://www.gov.uk/api/search.json"

	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultRetryBackoff is the wait before the first retry. It doubles per attempt.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultUserAgent identifies the client to the API.
	DefaultUserAgent = "surveytriage"

	// maxRetries caps WithRetries.
	maxRetries = 5

	// maxBodySize caps the response body read.
	maxBodySize = 4 << 20
)

// Result is the metadata fetched for one page.
type Result struct {
	// Orgs holds organisations[*].title of the first result, in order.
	Orgs []string

	// Sections holds mainstream_browse_pages of the first result, in order.
	Sections []string

	// Status is the HTTP status code of the response.
	Status int

	// FetchedAt is when the response was received.
	FetchedAt time.Time
}

// Client queries the content API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	rawBaseURL string
	httpClient *http.Client
	proxyURL   string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	limiter    *rate.Limiter
	userAgent  string
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL. Tests point this at an httptest server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.rawBaseURL = base
	}
}

// WithHTTPClient replaces the underlying HTTP client. The proxy option is
// ignored when a client is supplied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithProxy routes requests through an http, https, socks5 or socks5h proxy.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries enables up to n retries of temporary failures, waiting backoff
// before the first retry and doubling it each time. n is capped at 5.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = min(max(n, 0), maxRetries)
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = max(int(rps), 1)
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithClock overrides the time source used for Result.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a content API client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		rawBaseURL: DefaultBaseURL,
		timeout:    DefaultTimeout,
		backoff:    DefaultRetryBackoff,
		userAgent:  DefaultUserAgent,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	base, err := url.Parse(c.rawBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.rawBaseURL)
	}
	c.baseURL = base

	if c.httpClient == nil {
		transport, err := newTransport(c.proxyURL)
		if err != nil {
			return nil, err
		}
		c.httpClient = &http.Client{Transport: transport}
	}
	return c, nil
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Lookup fetches the organisations and browse pages for page.
//
// The returned error is one of *StatusError, ErrNoResults, ErrMissingFields,
// ErrDecode, a transport error, or the context error.
func (c *Client) Lookup(ctx context.Context, page string) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff<<(attempt-1)); err != nil {
				return Result{}, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return Result{}, fmt.Errorf("%w: %w", errRateLimit, err)
			}
		}

		res, err := c.fetch(ctx, page)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || !temporary(err) {
			break
		}
	}
	return Result{}, lastErr
}

// RequestURL returns the URL requested for page.
func (c *Client) RequestURL(page string) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("filter_link[]", page)
	q["fields"] = []string{"organisations", "mainstream_browse_pages"}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) fetch(ctx context.Context, page string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(page), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // drain for connection reuse
		return Result{}, &StatusError{Code: resp.StatusCode}
	}

	orgs, sections, err := decode(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Orgs:      orgs,
		Sections:  sections,
		Status:    resp.StatusCode,
		FetchedAt: c.now(),
	}, nil
}

// searchResponse is the subset of the search API response the client reads.
// The fields are pointers so that an absent field can be told from an empty one.
type searchResponse struct {
	Results []struct {
		Organisations *[]struct {
			Title string `json:"title"`
		} `json:"organisations"`
		MainstreamBrowsePages *[]string `json:"mainstream_browse_pages"`
	} `json:"results"`
}

func decode(r io.Reader) (orgs, sections []string, err error) {
	var body searchResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(body.Results) == 0 {
		return nil, nil, ErrNoResults
	}

	first := body.Results[0]
	if first.Organisations == nil && first.MainstreamBrowsePages == nil {
		return nil, nil, ErrMissingFields
	}
	if first.Organisations != nil {
		for _, org := range *first.Organisations {
			orgs = append(orgs, org.Title)
		}
	}
	if first.MainstreamBrowsePages != nil {
		sections = append(sections, *first.MainstreamBrowsePages...)
	}
	return orgs, sections, nil
}

// temporary reports whether err is worth retrying.
func temporary(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	if errors.Is(err, ErrDecode) || errors.Is(err, ErrNoResults) || errors.Is(err, ErrMissingFields) {
		return false
	}
	// Per-request timeouts and transport failures.
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
