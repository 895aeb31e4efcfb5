// Package supabase talks to a Supabase project over HTTP: GoTrue for
// authentication and PostgREST for table access.
package supabase

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"api-go-template/internal/platform/httpclient"
)

// Config holds the project endpoint and keys.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	// RESTRetries is the number of retries of idempotent PostgREST calls.
	RESTRetries int
	Timeout     time.Duration
	// Transport overrides the HTTP transport. Tests only.
	Transport http.RoundTripper
}

// Client is a Supabase project client. The auth side never retries; a failed
// verification surfaces immediately.
type Client struct {
	base       string
	anonKey    string
	serviceKey string
	auth       *httpclient.Client
	rest       *httpclient.Client
}

// New creates a Client. URL and AnonKey are required.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("supabase: url and anon key are required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("supabase: invalid project url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "supabase"))

	common := []httpclient.Option{
		httpclient.WithLogger(log),
		httpclient.WithTimeout(timeout),
		httpclient.WithTransport(cfg.Transport),
		httpclient.WithHeaders(map[string]string{"apikey": cfg.AnonKey}),
		httpclient.WithURLRedactor(redactURL),
	}
	serviceKey := cfg.ServiceRoleKey
	if serviceKey == "" {
		serviceKey = cfg.AnonKey
	}
	return &Client{
		base:       strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: serviceKey,
		auth:       httpclient.New(common...),
		rest:       httpclient.New(append(common, httpclient.WithRetries(cfg.RESTRetries, 200*time.Millisecond))...),
	}, nil
}

func (c *Client) authURL(path string) string  { return c.base + "/auth/v1" + path }
func (c *Client) restURL(table string) string { return c.base + "/rest/v1/" + table }

// redactURL drops the query string, which may hold filter values.
func redactURL(u *url.URL) string {
	r := *u
	r.RawQuery = ""
	r.User = nil
	return r.String()
}
