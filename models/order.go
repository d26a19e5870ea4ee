package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusOnWay     OrderStatus = "on_way"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type forwardStep struct {
	next  OrderStatus
	label string
}

// forward is the only path an order may take besides cancelling from pending.
var forward = map[OrderStatus]forwardStep{
	OrderStatusPending:   {OrderStatusConfirmed, "Confirm order"},
	OrderStatusConfirmed: {OrderStatusPreparing, "Start preparing"},
	OrderStatusPreparing: {OrderStatusOnWay, "Out for delivery"},
	OrderStatusOnWay:     {OrderStatusDelivered, "Mark delivered"},
}

var progress = map[OrderStatus]int{
	OrderStatusPending:   25,
	OrderStatusConfirmed: 40,
	OrderStatusPreparing: 60,
	OrderStatusOnWay:     80,
	OrderStatusDelivered: 100,
	OrderStatusCancelled: 0,
}

var statusMessages = map[OrderStatus]string{
	OrderStatusPending:   "Order placed",
	OrderStatusConfirmed: "Order confirmed by the restaurant",
	OrderStatusPreparing: "Your food is being prepared",
	OrderStatusOnWay:     "Driver is on the way",
	OrderStatusDelivered: "Order delivered",
	OrderStatusCancelled: "Order cancelled",
}

// ErrUnknownStatus is returned by ParseOrderStatus for values outside the enum.
var ErrUnknownStatus = errors.New("unknown order status")

// ParseOrderStatus validates s. An empty string is treated as pending.
func ParseOrderStatus(s string) (OrderStatus, error) {
	if s == "" {
		return OrderStatusPending, nil
	}
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the six known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := progress[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// NextStatus returns the single forward status after current and the action label
// shown to operators. Delivered, cancelled and unknown values have none.
func NextStatus(current OrderStatus) (OrderStatus, string, bool) {
	if current == "" {
		current = OrderStatusPending
	}
	step, ok := forward[current]
	if !ok {
		return "", "", false
	}
	return step.next, step.label, true
}

// CanCancel reports whether an operator may cancel an order in the given status.
func CanCancel(current OrderStatus) bool {
	return current == OrderStatusPending || current == ""
}

// CanTransition reports whether moving from -> to is permitted.
func CanTransition(from, to OrderStatus) bool {
	if from == "" {
		from = OrderStatusPending
	}
	if to == OrderStatusCancelled {
		return CanCancel(from)
	}
	next, _, ok := NextStatus(from)
	return ok && next == to
}

// Progress maps a status to the percentage shown on the tracking page.
func Progress(s OrderStatus) int {
	return progress[s]
}

// StatusMessage is the default tracking message for entering s.
func StatusMessage(s OrderStatus) string {
	if m, ok := statusMessages[s]; ok {
		return m
	}
	return "Status changed to " + string(s)
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentPrepaid PaymentMethod = "prepaid"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentPrepaid
}

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// LineItem is one entry of an order's basket, priced at submission time.
type LineItem struct {
	MenuItemID *int64  `json:"menuItemId,omitempty"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// LineItems is stored as a JSON array in a single text column.
type LineItems []LineItem

// Value implements driver.Valuer.
func (li LineItems) Value() (driver.Value, error) {
	if li == nil {
		li = LineItems{}
	}
	b, err := json.Marshal(li)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (li *LineItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*li = LineItems{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("line items: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*li = LineItems{}
		return nil
	}
	return json.Unmarshal(raw, li)
}

// Order is a customer purchase with delivery details and a lifecycle status.
type Order struct {
	ID              int64         `db:"id" json:"id"`
	OrderNumber     string        `db:"order_number" json:"orderNumber"`
	CustomerName    string        `db:"customer_name" json:"customerName"`
	CustomerPhone   string        `db:"customer_phone" json:"customerPhone"`
	CustomerEmail   *string       `db:"customer_email" json:"customerEmail,omitempty"`
	DeliveryAddress string        `db:"delivery_address" json:"deliveryAddress"`
	Latitude        *float64      `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64      `db:"longitude" json:"longitude,omitempty"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	RestaurantID    *int64        `db:"restaurant_id" json:"restaurantId,omitempty"`
	Items           LineItems     `db:"items" json:"items"`
	Subtotal        float64       `db:"subtotal" json:"subtotal"`
	Discount        float64       `db:"discount" json:"discount"`
	DeliveryFee     float64       `db:"delivery_fee" json:"deliveryFee"`
	TotalAmount     float64       `db:"total_amount" json:"totalAmount"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"paymentMethod"`
	PaymentStatus   string        `db:"payment_status" json:"paymentStatus"`
	Status          OrderStatus   `db:"status" json:"status"`
	DriverID        *int64        `db:"driver_id" json:"driverId,omitempty"`
	SpecialOfferID  *int64        `db:"special_offer_id" json:"specialOfferId,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// CreatorType tags who appended a tracking entry.
type CreatorType string

const (
	CreatorSystem CreatorType = "system"
	CreatorAdmin  CreatorType = "admin"
	CreatorDriver CreatorType = "driver"
)

// TrackingEntry is an append-only record of one status change.
type TrackingEntry struct {
	ID            int64       `db:"id" json:"id"`
	OrderID       int64       `db:"order_id" json:"orderId"`
	Status        OrderStatus `db:"status" json:"status"`
	Message       string      `db:"message" json:"message"`
	CreatedBy     *int64      `db:"created_by" json:"createdBy,omitempty"`
	CreatedByType CreatorType `db:"created_by_type" json:"createdByType"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}
