package pg

import (
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationInfo describes the outcome of Migrate.
type MigrationInfo struct {
	Applied        bool
	CurrentVersion uint
	FinalVersion   uint
}

// Migrate applies all pending migrations found in dir of fsys. Running it on
// an up to date database is a no-op.
func Migrate(dsn string, fsys fs.FS, dir string) (MigrationInfo, error) {
	m, err := newMigrate(dsn, fsys, dir)
	if err != nil {
		return MigrationInfo{}, err
	}
	defer func() { _, _ = m.Close() }()

	var info MigrationInfo
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return info, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return info, fmt.Errorf("database is dirty at version %d", version)
	}
	info.CurrentVersion = version
	info.FinalVersion = version

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return info, nil
		}
		return info, fmt.Errorf("apply migrations: %w", err)
	}
	info.Applied = true
	if v, _, err := m.Version(); err == nil {
		info.FinalVersion = v
	}
	return info, nil
}

// MigrationVersion reports the applied version. A fresh database reports 0.
func MigrationVersion(dsn string, fsys fs.FS, dir string) (uint, bool, error) {
	m, err := newMigrate(dsn, fsys, dir)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return v, dirty, nil
}

func newMigrate(dsn string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
