package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema up to date for the handle's dialect.
func RunMigrations(ctx context.Context, d *DB) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(d.Dialect))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	var m *migrate.Migrate
	switch d.Dialect {
	case Postgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, d.dsn)
		if err != nil {
			return fmt.Errorf("create migrate instance: %w", err)
		}
		defer m.Close()
	case SQLite:
		// The sqlite driver shares the handle so :memory: databases see the
		// schema. m.Close would close that handle, so it is not called.
		driver, err := sqlite.WithInstance(d.DB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("create sqlite driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return fmt.Errorf("create migrate instance: %w", err)
		}
	default:
		return fmt.Errorf("no migrations for dialect %q", d.Dialect)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
