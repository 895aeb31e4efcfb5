package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"time"

	"api-go-template/pkg/retry"
)

// Client wraps http.Client with logging, default headers and retries.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	headers     map[string]string
	urlRedactor func(*url.URL) string
	after       func(time.Duration) <-chan time.Time
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables retries of idempotent requests with exponential backoff and jitter.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if c.headers == nil {
				c.headers = make(map[string]string)
			}
			c.headers[k] = v
		}
	}
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// withAfter replaces the backoff timer. Tests only.
func withAfter(f func(time.Duration) <-chan time.Time) Option {
	return func(c *Client) { c.after = f }
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:         slog.Default(),
		baseBackoff: 200 * time.Millisecond,
		maxBackoff:  5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// statusError carries a retryable response status through the retry loop.
type statusError struct {
	status int
	wait   time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// Do sends req with default headers and logging. GET, HEAD, PUT and DELETE
// requests are retried on transport errors and on 408, 429 and 5xx. When
// retries run out on a retryable status the last response is returned as is,
// so callers can decode the error body.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	}

	attempts := 1
	if idempotent(req.Method) {
		attempts += c.retries
	}
	u := c.redactURL(req.URL)

	var (
		resp    *stdhttp.Response
		attempt int
	)
	cfg := retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: c.baseBackoff,
		MaxDelay:     c.maxBackoff,
		Multiplier:   2,
		Jitter:       true,
		After:        c.after,
		NextDelay: func(_ int, err error) (time.Duration, bool) {
			var se *statusError
			if errors.As(err, &se) {
				return se.wait, true
			}
			return 0, true
		},
		OnRetry: func(n int, err error, wait time.Duration) {
			c.log.Warn("http request retry",
				slog.String("method", req.Method),
				slog.String("url", u),
				slog.Int("attempt", n),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		},
	}

	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		attempt++
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		if r.GetBody != nil {
			rc, err := r.GetBody()
			if err != nil {
				return retry.Permanent(err)
			}
			r.Body = rc
		}

		st := time.Now()
		res, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		c.log.Debug("http request",
			slog.String("method", r.Method),
			slog.String("url", u),
			slog.Int("status", res.StatusCode),
			slog.Duration("dur", time.Since(st)),
			slog.Int("attempt", attempt),
		)
		if !retryableStatus(res.StatusCode) || attempt == attempts {
			resp = res
			return nil
		}
		wait := retryAfter(res.Header.Get("Retry-After"))
		drainAndClose(res.Body)
		return &statusError{status: res.StatusCode, wait: wait}
	}, func(err error) bool {
		var se *statusError
		return errors.As(err, &se) || retry.DefaultRetryable(err)
	})
	if err != nil {
		c.log.Warn("http request error",
			slog.String("method", req.Method),
			slog.String("url", u),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		return nil, err
	}
	return resp, nil
}

// NewJSONRequest builds a request with body encoded as JSON. A nil body sends none.
func NewJSONRequest(ctx context.Context, method, rawURL string, body any) (*stdhttp.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := stdhttp.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// DecodeJSON decodes resp body into out and closes it. A nil out discards the body.
func DecodeJSON(resp *stdhttp.Response, out any) error {
	defer drainAndClose(resp.Body)
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func idempotent(method string) bool {
	switch method {
	case stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodPut, stdhttp.MethodDelete, stdhttp.MethodOptions:
		return true
	}
	return false
}

func retryableStatus(code int) bool {
	return code == stdhttp.StatusRequestTimeout || code == stdhttp.StatusTooManyRequests || code >= 500
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// redactURL returns redacted URL string.
func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}
