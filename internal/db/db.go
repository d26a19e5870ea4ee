package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Open connects to the database and applies pending migrations.
// Migrations live under internal/db/migrations/<dialect> and follow the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied migration.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "app.db"
		}
		dsn = withSQLiteParams(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is empty")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	d, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		// One connection keeps writers serialised and the in-memory databases alive.
		d.SetMaxOpenConns(1)
		// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
		_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	}
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// RollbackLast rolls back the most recently applied migration.
func RollbackLast(d *sqlx.DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	m, err := newMigrator(d)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNilVersion) || errors.Is(err, migrate.ErrNoChange) {
			return nil // nothing to rollback
		}
		return err
	}
	return nil
}

// Version reports the currently applied migration version and whether it is dirty.
func Version(d *sqlx.DB) (uint, bool, error) {
	m, err := newMigrator(d)
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func applyMigrations(d *sqlx.DB) error {
	m, err := newMigrator(d)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	v, _, _ := m.Version()
	logrus.WithFields(logrus.Fields{"driver": d.DriverName(), "version": v}).Debug("database schema up to date")
	return nil
}

// newMigrator builds a migrate instance over the existing connection pool.
// The instance is never closed: closing it would close the shared *sql.DB.
func newMigrator(d *sqlx.DB) (*migrate.Migrate, error) {
	var (
		drv database.Driver
		dir string
		err error
	)
	switch d.DriverName() {
	case DriverSQLite:
		dir = "migrations/sqlite"
		drv, err = migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	case DriverPostgres:
		dir = "migrations/postgres"
		drv, err = migratepg.WithInstance(d.DB, &migratepg.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.DriverName())
	}
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, d.DriverName(), drv)
}

// withSQLiteParams turns on foreign keys and a busy timeout unless the DSN sets them.
func withSQLiteParams(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + sep + strings.Join(params, "&")
}

// Tx runs fn inside a transaction, committing on success and rolling back on error.
func Tx(ctx context.Context, d *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logrus.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	return tx.Commit()
}
