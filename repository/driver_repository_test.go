package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"foodDelivery/internal/testutil"
	"foodDelivery/models"
)

func TestDriver_CRUD(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_driver_crud")
	drivers := NewDriverRepository(d)
	ctx := context.Background()

	drv, err := drivers.Create(ctx, &models.Driver{Name: "Ann", Phone: "555-1", PasswordHash: "hash", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := drivers.Create(ctx, &models.Driver{Name: "Dup", Phone: "555-1", PasswordHash: "hash"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused phone, got %v", err)
	}

	got, err := drivers.GetByPhone(ctx, "555-1")
	if err != nil || got == nil || got.ID != drv.ID || got.PasswordHash != "hash" {
		t.Fatalf("get by phone: %+v err=%v", got, err)
	}

	if err := drivers.SetAvailability(ctx, drv.ID, true); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if err := drivers.SetAvailability(ctx, 999, true); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	got, _ = drivers.GetByID(ctx, drv.ID)
	if !got.IsAvailable {
		t.Fatalf("availability not stored")
	}

	loc := "Downtown"
	got.Name = "Ann B"
	got.CurrentLocation = &loc
	got.PasswordHash = "hash2"
	if err := drivers.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = drivers.GetByID(ctx, drv.ID)
	if got.Name != "Ann B" || got.CurrentLocation == nil || *got.CurrentLocation != loc || got.PasswordHash != "hash2" {
		t.Fatalf("update not applied: %+v", got)
	}

	got.PasswordHash = ""
	if err := drivers.Update(ctx, got); err != nil {
		t.Fatalf("update without hash: %v", err)
	}
	if got, _ = drivers.GetByID(ctx, drv.ID); got.PasswordHash != "hash2" {
		t.Fatalf("empty hash must keep the stored one, got %q", got.PasswordHash)
	}

	other, err := drivers.Create(ctx, &models.Driver{Name: "Bo", Phone: "555-2", PasswordHash: "hash", IsActive: true})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	other.Phone = "555-1"
	if err := drivers.Update(ctx, other); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on phone update, got %v", err)
	}
	if err := drivers.Delete(ctx, other.ID); err != nil {
		t.Fatalf("delete second: %v", err)
	}

	list, err := drivers.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v err=%v", list, err)
	}
	if err := drivers.Delete(ctx, drv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st, err := drivers.Stats(ctx, drv.ID)
	if err != nil || st != nil {
		t.Fatalf("stats of deleted driver should be (nil, nil): %+v %v", st, err)
	}
}

func TestAdmin_Repository(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_admin")
	admins := NewAdminRepository(d)
	ctx := context.Background()

	n, err := admins.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("count empty: %d err=%v", n, err)
	}
	a, err := admins.Create(ctx, "root", "hash", "Root")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := admins.GetByUsername(ctx, "ROOT")
	if err != nil || got == nil || got.ID != a.ID {
		t.Fatalf("case-insensitive lookup: %+v err=%v", got, err)
	}
	email := "root@example.com"
	if err := admins.UpdateProfile(ctx, a.ID, "Root Admin", &email); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if err := admins.UpdatePassword(ctx, a.ID, "hash2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, _ = admins.GetByID(ctx, a.ID)
	if got.Name != "Root Admin" || got.Email == nil || *got.Email != email || got.PasswordHash != "hash2" {
		t.Fatalf("profile not updated: %+v", got)
	}
	if err := admins.UpdatePassword(ctx, 999, "x"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDriverList_PropagatesDBError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	drivers := NewDriverRepository(sqlx.NewDb(raw, "sqlmock"))

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT (.+) FROM drivers").WillReturnError(boom)
	if _, err := drivers.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatus_RollsBackWhenTrackingInsertFails(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	orders := NewOrderRepository(sqlx.NewDb(raw, "sqlmock"))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO order_tracking").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = orders.TransitionStatus(context.Background(), 1, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
