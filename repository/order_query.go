package repository

import (
	"context"
	"strings"

	"foodDelivery/models"
)

// OrderFilter represents filters and pagination for List (admin).
type OrderFilter struct {
	Statuses []models.OrderStatus
	DriverID *int64
	Limit    int
	Offset   int
}

// OrderDetailsPatch holds the optional, non-lifecycle fields an admin may edit.
type OrderDetailsPatch struct {
	CustomerName    *string
	CustomerPhone   *string
	CustomerEmail   *string
	DeliveryAddress *string
	Notes           *string
	Latitude        *float64
	Longitude       *float64
	PaymentStatus   *string
}

func (p OrderDetailsPatch) assignments() ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.CustomerName != nil {
		add("customer_name", *p.CustomerName)
	}
	if p.CustomerPhone != nil {
		add("customer_phone", *p.CustomerPhone)
	}
	if p.CustomerEmail != nil {
		add("customer_email", *p.CustomerEmail)
	}
	if p.DeliveryAddress != nil {
		add("delivery_address", *p.DeliveryAddress)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.Latitude != nil {
		add("latitude", *p.Latitude)
	}
	if p.Longitude != nil {
		add("longitude", *p.Longitude)
	}
	if p.PaymentStatus != nil {
		add("payment_status", *p.PaymentStatus)
	}
	return sets, args
}

// List returns orders matching the filter ordered by created_at desc, id desc.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var where []string
	var args []any
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+joinComma(placeholders)+")")
	}
	if f.DriverID != nil {
		where = append(where, "driver_id = ?")
		args = append(args, *f.DriverID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	out := []models.Order{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDriver returns all orders assigned to a driver, newest first.
func (r *OrderRepository) ListByDriver(ctx context.Context, driverID int64) ([]models.Order, error) {
	return r.List(ctx, OrderFilter{DriverID: &driverID, Limit: 200})
}

// ListAvailable returns confirmed or preparing orders without a driver, oldest first.
func (r *OrderRepository) ListAvailable(ctx context.Context) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.Order{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+orderColumns+`
FROM orders
WHERE driver_id IS NULL AND status IN (?, ?)
ORDER BY created_at ASC, id ASC`), string(models.OrderStatusConfirmed), string(models.OrderStatusPreparing))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus returns the number of orders per status.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`); err != nil {
		return nil, err
	}
	out := make(map[models.OrderStatus]int, len(rows))
	for _, row := range rows {
		out[models.OrderStatus(row.Status)] = row.N
	}
	return out, nil
}

// DeliveredRevenue sums total_amount over delivered orders.
func (r *OrderRepository) DeliveredRevenue(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var total float64
	err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = ?`), string(models.OrderStatusDelivered))
	return total, err
}

func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}
