// Package retry runs an operation with exponential backoff.
//
// It backs every retrying caller in the application: outbound HTTP calls to
// the data API, waiting for PostgreSQL at startup and SQLITE_BUSY retries.
// The auth round trip deliberately does not use it.
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// Stop early on errors that will not heal:
//
//	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
//	    if err := call(ctx); errors.Is(err, errBadRequest) {
//	        return retry.Permanent(err)
//	    }
//	    return err
//	})
//
// NextDelay lets a caller honor server hints such as Retry-After.
package retry
