package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/internal/db"
	"foodDelivery/models"
)

const orderColumns = `id, order_number, customer_name, customer_phone, customer_email, delivery_address,
latitude, longitude, notes, restaurant_id, items, subtotal, discount, delivery_fee, total_amount,
payment_method, payment_status, status, driver_id, special_offer_id, created_at, updated_at`

// OrderRepository is the core repository for Order entities.
// It handles basic CRUD operations, status transitions and the tracking log.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order together with its first tracking entry in one transaction.
// Status defaults to 'pending' and payment status to 'pending' if empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order, entry *models.TrackingEntry) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = models.PaymentCash
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var id int64
	err := db.Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, tx.Rebind(`
INSERT INTO orders (order_number, customer_name, customer_phone, customer_email, delivery_address,
  latitude, longitude, notes, restaurant_id, items, subtotal, discount, delivery_fee, total_amount,
  payment_method, payment_status, status, driver_id, special_offer_id, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
RETURNING id`),
			o.OrderNumber, o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.DeliveryAddress,
			o.Latitude, o.Longitude, o.Notes, o.RestaurantID, o.Items, o.Subtotal, o.Discount, o.DeliveryFee, o.TotalAmount,
			string(o.PaymentMethod), o.PaymentStatus, string(o.Status), o.DriverID, o.SpecialOfferID, now, now).Scan(&id)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		entry.OrderID = id
		return insertTracking(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return o2, nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetByNumber fetches an order by its public order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var o models.Order
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// TransitionStatus moves an order from one status to another and appends the tracking
// entry in the same transaction. The update only applies while the stored status still
// equals from; otherwise ErrStatusChanged is returned (sql.ErrNoRows if the order is missing).
// Entering 'delivered' credits the order's delivery fee to the assigned driver.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id int64, from, to models.OrderStatus, entry *models.TrackingEntry) error {
	return r.TransitionWithDetails(ctx, id, OrderDetailsPatch{}, from, to, entry)
}

// TransitionWithDetails is TransitionStatus that also applies the non-nil fields of p
// in the same guarded UPDATE. Nothing is written when the guard fails.
func (r *OrderRepository) TransitionWithDetails(ctx context.Context, id int64, p OrderDetailsPatch, from, to models.OrderStatus, entry *models.TrackingEntry) error {
	if entry == nil {
		return errors.New("tracking entry is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sets, args := p.assignments()
	sets = append(sets, "status = ?", "updated_at = ?")
	args = append(args, string(to), time.Now().UTC(), id, string(from))
	query := "UPDATE orders SET " + joinComma(sets) + " WHERE id = ? AND status = ?"

	return db.Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missedOrderUpdate(ctx, tx, id, ErrStatusChanged)
		}
		if to == models.OrderStatusDelivered {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE drivers SET earnings = earnings + (SELECT delivery_fee FROM orders WHERE id = ?)
WHERE id = (SELECT driver_id FROM orders WHERE id = ?)`), id, id); err != nil {
				return err
			}
		}
		entry.OrderID = id
		entry.Status = to
		return insertTracking(ctx, tx, entry)
	})
}

// AssignDriver sets the driver of an open order and appends the tracking entry.
// With onlyIfUnassigned the update only applies when no driver is set yet, so two
// drivers accepting the same order cannot both win.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID, driverID int64, onlyIfUnassigned bool, entry *models.TrackingEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `UPDATE orders SET driver_id = ?, updated_at = ? WHERE id = ? AND status NOT IN ('delivered','cancelled')`
	if onlyIfUnassigned {
		query += ` AND driver_id IS NULL`
	}
	return db.Tx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(query), driverID, time.Now().UTC(), orderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missedOrderUpdate(ctx, tx, orderID, ErrAlreadyAssigned)
		}
		if entry == nil {
			return nil
		}
		var status string
		if err := tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM orders WHERE id = ?`), orderID); err != nil {
			return err
		}
		entry.OrderID = orderID
		entry.Status = models.OrderStatus(status)
		return insertTracking(ctx, tx, entry)
	})
}

// UpdateDetails applies the non-nil fields of p. Status is not patchable here.
func (r *OrderRepository) UpdateDetails(ctx context.Context, id int64, p OrderDetailsPatch) error {
	sets, args := p.assignments()
	if len(sets) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)
	query := "UPDATE orders SET " + joinComma(sets) + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTracking returns an order's tracking entries, newest first.
func (r *OrderRepository) ListTracking(ctx context.Context, orderID int64) ([]models.TrackingEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.TrackingEntry{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT id, order_id, status, message, created_by, created_by_type, created_at
FROM order_tracking WHERE order_id = ? ORDER BY created_at DESC, id DESC`), orderID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertTracking(ctx context.Context, tx *sqlx.Tx, e *models.TrackingEntry) error {
	if e.CreatedByType == "" {
		e.CreatedByType = models.CreatorSystem
	}
	if e.Status == "" {
		e.Status = models.OrderStatusPending
	}
	if e.Message == "" {
		e.Message = models.StatusMessage(e.Status)
	}
	e.CreatedAt = time.Now().UTC()
	return tx.QueryRowxContext(ctx, tx.Rebind(`
INSERT INTO order_tracking (order_id, status, message, created_by, created_by_type, created_at)
VALUES (?,?,?,?,?,?) RETURNING id`),
		e.OrderID, string(e.Status), e.Message, e.CreatedBy, string(e.CreatedByType), e.CreatedAt).Scan(&e.ID)
}

// missedOrderUpdate tells a missing order (sql.ErrNoRows) apart from a guard that did not match.
func missedOrderUpdate(ctx context.Context, tx *sqlx.Tx, id int64, guardErr error) error {
	var exists int
	err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT 1 FROM orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}
	return guardErr
}
