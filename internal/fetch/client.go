package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/nao1215/storycrawl/internal/log"
)

// Default client settings.
const (
	// DefaultUserAgent identifies the crawler as a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

	// DefaultMaxBodySize is the largest body read from one response.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	defaultRetryWait    = 2 * time.Second
	defaultRetryMaxWait = 30 * time.Second
)

// Client fetches pages over HTTP.
// It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	userAgent    string
	headers      map[string]string
	cookie       string
	retries      int
	retryWait    time.Duration
	retryMaxWait time.Duration
	timeout      time.Duration
	maxBodySize  int64
	transport    http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		maps.Copy(c.headers, h)
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithRetry enables up to n extra attempts for transport errors, 429 and
// 5xx responses. wait is the initial backoff and maxWait caps it. Zero
// waits keep the defaults.
func WithRetry(n int, wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.retries = max(n, 0)
		if wait > 0 {
			c.retryWait = wait
		}
		if maxWait > 0 {
			c.retryMaxWait = maxWait
		}
	}
}

// WithRateLimit caps requests per second over every attempt, retries included.
// Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxBodySize limits the number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport replaces the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		logger:       log.Discard(),
		userAgent:    DefaultUserAgent,
		headers:      make(map[string]string),
		retryWait:    defaultRetryWait,
		retryMaxWait: defaultRetryMaxWait,
		maxBodySize:  DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	client := resty.New()
	if c.transport != nil {
		client.SetTransport(c.transport)
	}
	client.GetClient().Transport = &limitedTransport{
		next:  client.GetClient().Transport,
		limit: c.maxBodySize,
	}
	client.SetLogger(restyLogger{logger: c.logger})
	client.SetHeaders(c.headers)
	client.SetHeader("User-Agent", c.userAgent)
	if c.cookie != "" {
		client.SetHeader("Cookie", c.cookie)
	}
	if c.timeout > 0 {
		client.SetTimeout(c.timeout)
	}

	client.SetRetryCount(c.retries)
	client.SetRetryWaitTime(c.retryWait)
	client.SetRetryMaxWaitTime(c.retryMaxWait)
	client.AddRetryCondition(shouldRetry)

	client.OnBeforeRequest(c.throttle)

	c.http = client
	return c
}

// Fetch returns the body of the page at rawURL.
//
// A 200 response returns the body as-is. Any other final status returns a
// *StatusError. Transport failures return an error wrapping ErrTransport,
// and cancellation returns the context error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("fetch %s: %w", rawURL, ctxErr)
		}
		c.logger.Error("request failed", "url", rawURL, "error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err)
	}

	c.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode(),
		"attempts", resp.Request.Attempt,
		"bytes", len(resp.Body()),
		"elapsed", time.Since(start).Round(time.Millisecond),
		headerGroup(resp.Request),
	)

	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("failed to retrieve page", "url", rawURL, "status", resp.StatusCode())
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode()}
	}

	return string(resp.Body()), nil
}

// throttle waits for the rate limiter before every attempt.
func (c *Client) throttle(_ *resty.Client, req *resty.Request) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(req.Context())
}

// shouldRetry retries transport errors, 429 and 5xx.
// Oversized bodies and cancellation are final.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// headerGroup logs the request headers as a group. Credential headers are
// masked by the logger's redacting handler.
func headerGroup(req *resty.Request) slog.Attr {
	if req == nil || req.RawRequest == nil {
		return slog.Group("headers")
	}
	h := req.RawRequest.Header
	keys := slices.Sorted(maps.Keys(h))
	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, strings.Join(h[k], ", ")))
	}
	return slog.Group("headers", attrs...)
}

// limitedTransport caps the response body size.
type limitedTransport struct {
	next  http.RoundTripper
	limit int64
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = http.MaxBytesReader(nil, resp.Body, t.limit)
	return resp, nil
}
