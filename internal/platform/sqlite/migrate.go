package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateURL builds the golang-migrate database URL for the file at path.
// "C:\db.sqlite" becomes "sqlite:///C:/db.sqlite" and "/tmp/db" becomes
// "sqlite:///tmp/db".
func MigrateURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve database path: %w", err)
	}
	p := filepath.ToSlash(abs)
	if runtime.GOOS == "windows" && len(p) >= 2 && p[1] == ':' {
		p = "/" + p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "sqlite://" + p, nil
}

// Migrate applies all pending migrations from dir of fsys to the database
// file at path. It returns the resulting schema version.
func Migrate(path string, fsys fs.FS, dir string) (uint, error) {
	m, err := newMigrate(path, fsys, dir)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	v, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return v, nil
}

// MigrateDown rolls back every migration. Tests only.
func MigrateDown(path string, fsys fs.FS, dir string) error {
	m, err := newMigrate(path, fsys, dir)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

func newMigrate(path string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	dbURL, err := MigrateURL(path)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
