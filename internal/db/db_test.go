package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	d, err := Open(DriverSQLite, "file:dbopen?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	v, dirty, err := Version(d)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("version = %d dirty=%v, want 2 clean", v, dirty)
	}

	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM ui_settings`); err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected default ui settings to be seeded")
	}
}

func TestRollbackLast(t *testing.T) {
	d, err := Open(DriverSQLite, "file:dbrollback?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	v, _, err := Version(d)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 {
		t.Fatalf("version after rollback = %d, want 1", v)
	}
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM ui_settings`); err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected seeded settings removed, got %d", n)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := Open(DriverPostgres, ""); err == nil {
		t.Fatalf("expected error for empty postgres dsn")
	}
}

func TestWithSQLiteParams(t *testing.T) {
	got := withSQLiteParams("app.db")
	if !strings.HasPrefix(got, "file:app.db?") || !strings.Contains(got, "_foreign_keys=on") || !strings.Contains(got, "_busy_timeout=5000") {
		t.Fatalf("unexpected dsn %q", got)
	}
	got = withSQLiteParams("file:x?mode=memory&_fk=1&_busy_timeout=10")
	if got != "file:x?mode=memory&_fk=1&_busy_timeout=10" {
		t.Fatalf("dsn should be untouched, got %q", got)
	}
}

func TestTx_RollsBackOnError(t *testing.T) {
	d, err := Open(DriverSQLite, "file:dbtx?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	boom := errors.New("boom")
	err = Tx(context.Background(), d, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO categories (name) VALUES ('Pizza')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("insert should have been rolled back, found %d rows", n)
	}
}
