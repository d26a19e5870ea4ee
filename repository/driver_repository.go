package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/models"
)

const driverColumns = `id, name, phone, password_hash, is_available, is_active, current_location, earnings, created_at`

type DriverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Create inserts a new driver. New drivers start active and unavailable.
func (r *DriverRepository) Create(ctx context.Context, d *models.Driver) (*models.Driver, error) {
	if d == nil {
		return nil, errors.New("driver is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	d.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO drivers (name, phone, password_hash, is_available, is_active, current_location, earnings, created_at)
VALUES (?,?,?,?,?,?,?,?) RETURNING id`),
		d.Name, d.Phone, d.PasswordHash, d.IsAvailable, d.IsActive, d.CurrentLocation, d.Earnings, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return nil, wrapUnique(err, "phone")
	}
	return d, nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*models.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id)
}

// GetByPhone fetches a driver by the phone number used to log in.
func (r *DriverRepository) GetByPhone(ctx context.Context, phone string) (*models.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE phone = ?`, phone)
}

func (r *DriverRepository) getOne(ctx context.Context, query string, args ...any) (*models.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var d models.Driver
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.Driver{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+driverColumns+` FROM drivers ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the editable profile fields of a driver in one statement. A non-empty
// PasswordHash replaces the stored one; earnings are untouched.
func (r *DriverRepository) Update(ctx context.Context, d *models.Driver) error {
	if d == nil {
		return errors.New("driver is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
UPDATE drivers SET name = ?, phone = ?, is_available = ?, is_active = ?, current_location = ?,
  password_hash = COALESCE(NULLIF(?, ''), password_hash)
WHERE id = ?`),
		d.Name, d.Phone, d.IsAvailable, d.IsActive, d.CurrentLocation, d.PasswordHash, d.ID)
	if err != nil {
		return wrapUnique(err, "phone")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a driver. Orders keep their history with driver_id cleared.
func (r *DriverRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM drivers WHERE id = ?`, id)
}

// SetAvailability flips the driver's own availability flag.
func (r *DriverRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	return r.exec(ctx, `UPDATE drivers SET is_available = ? WHERE id = ?`, available, id)
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates a driver's orders. Returns (nil, nil) for an unknown driver.
func (r *DriverRepository) Stats(ctx context.Context, id int64) (*models.DriverStats, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	st := models.DriverStats{DriverID: id, Earnings: d.Earnings}
	err = r.db.QueryRowxContext(ctx, r.db.Rebind(`
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN status IN ('confirmed','preparing','on_way') THEN 1 ELSE 0 END), 0)
FROM orders WHERE driver_id = ?`), id).Scan(&st.TotalOrders, &st.DeliveredOrders, &st.ActiveOrders)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
