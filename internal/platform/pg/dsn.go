package pg

import (
	"fmt"
	"net/url"
	"strings"
)

// WithApplicationName sets application_name on a URL-form DSN unless it is
// already present, so sessions show up by name in pg_stat_activity.
func WithApplicationName(dsn, name string) (string, error) {
	u, err := parseURL(dsn)
	if err != nil {
		return "", err
	}
	if name == "" {
		return dsn, nil
	}
	q := u.Query()
	if q.Get("application_name") == "" {
		q.Set("application_name", name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RedactDSN hides the password of a URL-form DSN for logging. Unparseable
// input is replaced entirely.
func RedactDSN(dsn string) string {
	u, err := parseURL(dsn)
	if err != nil {
		return "[invalid dsn]"
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

func parseURL(dsn string) (*url.URL, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	if s := strings.ToLower(u.Scheme); s != "postgres" && s != "postgresql" {
		return nil, fmt.Errorf("invalid dsn scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("dsn has no host")
	}
	return u, nil
}
