package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"github.com/smallbiznis/pizzaledger/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationsTable = "pizzaledger_schema_migrations"

var ErrNoHandle = errors.New("migration database handle is required")

// Migrate prepares the ledger schema. Postgres runs the embedded SQL migrations; the other
// dialects get the table from GORM.
func Migrate(conn *gorm.DB, dbType string, log *zap.Logger) error {
	if conn == nil {
		return ErrNoHandle
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migration").With(zap.String("dialect", dbType))

	if dbType != db.TypePostgres {
		if err := ledgerstore.AutoMigrate(conn); err != nil {
			return fmt.Errorf("auto migrate ledger documents: %w", err)
		}
		log.Info("ledger schema ready")
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("ledger schema ready", zap.Uint("version", version))
	return nil
}

// RunMigrations applies every pending embedded migration and returns the schema version.
// The shared *sql.DB stays open.
func RunMigrations(sqlDB *sql.DB) (uint, error) {
	if sqlDB == nil {
		return 0, ErrNoHandle
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration %d left the schema dirty", version)
	}
	return version, nil
}
