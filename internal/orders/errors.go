package orders

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrDriverUnavailable = errors.New("driver is not active or not available")
	ErrNotAssigned       = errors.New("order is not assigned to this driver")
)
