package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// migrateSchema brings the obligation schema up to date from the embedded
// migration files. It opens its own connection: golang-migrate closes the
// database it is handed, which must never be the repository's pool.
func migrateSchema(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open schema connection: %w", err)
	}

	source, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("prepare sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("assemble migration runner: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
