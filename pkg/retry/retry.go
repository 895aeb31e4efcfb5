package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/url"
	"time"
)

// Config defines retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first one)
	MaxAttempts int
	// InitialDelay is the delay before the second attempt
	InitialDelay time.Duration
	// MaxDelay caps a single delay
	MaxDelay time.Duration
	// MaxElapsedTime is the maximum total time to spend on retries (0 = no limit)
	MaxElapsedTime time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
	// Jitter adds up to one extra base delay at random
	Jitter bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, nextDelay time.Duration)
	// NextDelay overrides the computed delay. Returning false stops retrying.
	NextDelay func(attempt int, err error) (time.Duration, bool)
	// After creates a timer channel (for testing, defaults to time.After)
	After func(d time.Duration) <-chan time.Time
	// Now returns current time (for testing, defaults to time.Now)
	Now func() time.Time
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// normalize validates c and fills optional fields.
func (c *Config) normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay < 0 {
		return errors.New("retry: InitialDelay cannot be negative")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.MaxElapsedTime < 0 {
		return errors.New("retry: MaxElapsedTime cannot be negative")
	}
	if c.After == nil {
		c.After = time.After
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(ctx context.Context) error

// IsRetryableFunc determines if an error should trigger a retry
type IsRetryableFunc func(err error) bool

// RetriesExceededError is returned when retries are exhausted
type RetriesExceededError struct {
	LastError error
	Attempts  int
	Reason    string
}

func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("retry: %s (%d attempts): %v", e.Reason, e.Attempts, e.LastError)
}

func (e *RetriesExceededError) Unwrap() error {
	return e.LastError
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable regardless of the retryable check.
// Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultRetryable returns true for transient network failures.
func DefaultRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) && dnsErr.IsTemporary {
			return true
		}
		var opErr *net.OpError
		return errors.As(urlErr.Err, &opErr)
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do executes fn with exponential backoff using DefaultRetryable.
func Do(ctx context.Context, config Config, fn RetryableFunc) error {
	return DoWithRetryable(ctx, config, fn, DefaultRetryable)
}

// DoWithRetryable executes fn with exponential backoff and a custom retryable check.
func DoWithRetryable(ctx context.Context, config Config, fn RetryableFunc, isRetryable IsRetryableFunc) error {
	c := config
	if err := c.normalize(); err != nil {
		return err
	}

	var lastErr error
	start := c.Now()
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == c.MaxAttempts {
			break
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		delay := c.delay(attempt)
		if c.NextDelay != nil {
			d, ok := c.NextDelay(attempt, lastErr)
			if !ok {
				return lastErr
			}
			if d > 0 {
				delay = d
			}
		}
		if delay > c.MaxDelay {
			delay = c.MaxDelay
		}

		if c.MaxElapsedTime > 0 && c.Now().Sub(start)+delay > c.MaxElapsedTime {
			return &RetriesExceededError{LastError: lastErr, Attempts: attempt, Reason: "max elapsed time exceeded"}
		}
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); delay > remaining {
				delay = remaining
			}
		}
		if c.OnRetry != nil {
			c.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.After(delay):
		}
	}

	return &RetriesExceededError{LastError: lastErr, Attempts: c.MaxAttempts, Reason: "max attempts exceeded"}
}

// delay returns the backoff before attempt+1.
func (c Config) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < attempt; i++ {
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
		d = time.Duration(float64(d) * c.Multiplier)
	}
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter && d > 0 {
		d += rand.N(d)
	}
	return d
}
