package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Options holds SQLite connection settings.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	WALMode         bool
	ForeignKeys     bool
	BusyTimeout     time.Duration
}

// DefaultOptions returns settings for a single-writer embedded database.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		ForeignKeys:     true,
		BusyTimeout:     5 * time.Second,
	}
}

// Open opens the database at path, creating its directory when needed, and
// applies the PRAGMA settings of opts.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a private in-memory database on a single connection.
func OpenInMemory(ctx context.Context) (*sql.DB, error) {
	opts := DefaultOptions()
	opts.WALMode = false
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	opts.ConnMaxLifetime = 0
	return Open(ctx, ":memory:", opts)
}

// Check runs a trivial query against db.
func Check(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health query: %w", err)
	}
	return nil
}

// buildDSN passes PRAGMAs through the driver so that every pooled connection
// gets them, not only the first one.
func buildDSN(path string, opts Options) string {
	pragmas := make([]string, 0, 4)
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	if opts.WALMode {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	pragmas = append(pragmas, "synchronous(NORMAL)")

	q := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		q = append(q, "_pragma="+p)
	}
	return path + "?" + strings.Join(q, "&")
}
