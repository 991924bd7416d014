package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const filePrefix = "file://"

// MigrateUp applies all up migrations found in dir of fsys.
func (db *DB) MigrateUp(fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, db.DSN)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()
	return db.up(m)
}

// RunMigrationsUp applies all up migrations from a directory on disk.
func (db *DB) RunMigrationsUp(migrationsPath string) error {
	m, err := migrate.New(filePrefix+migrationsPath, db.DSN)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()
	return db.up(m)
}

func (db *DB) up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.log.DebugF("no new up migrations to apply")
			return nil
		}
		return fmt.Errorf("apply up migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		db.log.InfoF("migrations applied: version=%d dirty=%v", version, dirty)
	}
	return nil
}

// MigrateDown rolls back all migrations found in dir of fsys.
func (db *DB) MigrateDown(fsys fs.FS, dir string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, db.DSN)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()
	return db.down(m)
}

// RunMigrationsDown rolls back all migrations from a directory on disk.
func (db *DB) RunMigrationsDown(migrationsPath string) error {
	m, err := migrate.New(filePrefix+migrationsPath, db.DSN)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()
	return db.down(m)
}

func (db *DB) down(m *migrate.Migrate) error {
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply down migrations: %w", err)
	}
	db.log.InfoF("migrations rolled back")
	return nil
}
