package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"api-go-template/pkg/retry"
)

// WaitOptions controls WaitForDB.
type WaitOptions struct {
	// MaxAttempts is the number of connection attempts; 0 retries until ctx ends.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	PingTimeout     time.Duration
	Logger          *slog.Logger
}

// DefaultWaitOptions returns options suited to container startup ordering.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		MaxAttempts:     10,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// WaitForDB blocks until a connection to dsn succeeds, backing off between
// attempts.
func WaitForDB(ctx context.Context, dsn string, opts WaitOptions) error {
	if _, err := pgxpool.ParseConfig(dsn); err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = int(^uint(0) >> 1)
	}
	cfg := retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: opts.InitialInterval,
		MaxDelay:     opts.MaxInterval,
		Multiplier:   2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			if opts.Logger != nil {
				opts.Logger.Warn("database not ready",
					slog.Int("attempt", attempt),
					slog.Duration("wait", wait),
					slog.Any("error", err),
				)
			}
		},
	}
	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		return ping(ctx, dsn, opts.PingTimeout)
	}, func(error) bool { return true })
	if err != nil {
		return fmt.Errorf("wait for database: %w", err)
	}
	return nil
}

// CheckPool pings pool and runs a trivial query.
func CheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("pool is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health query: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("unexpected health query result %d", one)
	}
	return nil
}

// Stats is a snapshot of pool usage.
type Stats struct {
	MaxConns     int32
	TotalConns   int32
	AcquiredConn int32
	IdleConns    int32
}

// PoolStats returns usage counters of pool.
func PoolStats(pool *pgxpool.Pool) Stats {
	if pool == nil {
		return Stats{}
	}
	s := pool.Stat()
	return Stats{
		MaxConns:     s.MaxConns(),
		TotalConns:   s.TotalConns(),
		AcquiredConn: s.AcquiredConns(),
		IdleConns:    s.IdleConns(),
	}
}

func ping(ctx context.Context, dsn string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Ping(ctx)
}
