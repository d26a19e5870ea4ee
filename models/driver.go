package models

import "time"

// Driver delivers orders. Phone doubles as the login name.
type Driver struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Phone           string    `db:"phone" json:"phone"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	IsAvailable     bool      `db:"is_available" json:"isAvailable"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	CurrentLocation *string   `db:"current_location" json:"currentLocation,omitempty"`
	Earnings        float64   `db:"earnings" json:"earnings"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// DriverStats summarises a driver's delivery history.
type DriverStats struct {
	DriverID        int64   `db:"driver_id" json:"driverId"`
	TotalOrders     int     `db:"total_orders" json:"totalOrders"`
	DeliveredOrders int     `db:"delivered_orders" json:"deliveredOrders"`
	ActiveOrders    int     `db:"active_orders" json:"activeOrders"`
	Earnings        float64 `db:"earnings" json:"earnings"`
}
