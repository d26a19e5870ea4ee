package orders

import (
	"context"
	"fmt"

	"foodDelivery/models"
)

// activeDriver loads a driver and checks it may work orders. With needAvailable the
// driver must also be marked available.
func (s *Service) activeDriver(ctx context.Context, driverID int64, needAvailable bool) (*models.Driver, error) {
	d, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", driverID, err)
	}
	if d == nil {
		return nil, ErrDriverNotFound
	}
	if !d.IsActive || (needAvailable && !d.IsAvailable) {
		return nil, ErrDriverUnavailable
	}
	return d, nil
}

// AvailableOrders lists confirmed or preparing orders nobody has taken yet.
func (s *Service) AvailableOrders(ctx context.Context, driverID int64) ([]models.Order, error) {
	if _, err := s.activeDriver(ctx, driverID, true); err != nil {
		return nil, err
	}
	return s.orders.ListAvailable(ctx)
}

// Accept assigns an unclaimed order to the driver. A second driver accepting the
// same order gets ErrConflict.
func (s *Service) Accept(ctx context.Context, driverID, orderID int64) (*models.Order, error) {
	d, err := s.activeDriver(ctx, driverID, true)
	if err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusConfirmed && o.Status != models.OrderStatusPreparing {
		return nil, fmt.Errorf("%w: order %d is %s", ErrConflict, orderID, o.Status)
	}
	if err := s.orders.AssignDriver(ctx, orderID, driverID, true, DriverActor(driverID).entry(assignedMessage(d))); err != nil {
		return nil, mapAssignErr(orderID, err)
	}
	return s.Get(ctx, orderID)
}

// DriverOrders returns the orders assigned to the driver, newest first.
func (s *Service) DriverOrders(ctx context.Context, driverID int64) ([]models.Order, error) {
	if _, err := s.activeDriver(ctx, driverID, false); err != nil {
		return nil, err
	}
	return s.orders.ListByDriver(ctx, driverID)
}

// DriverSetStatus lets a driver move one of their own orders out for delivery or
// mark it delivered.
func (s *Service) DriverSetStatus(ctx context.Context, driverID, orderID int64, target, message string) (*models.Order, error) {
	if _, err := s.activeDriver(ctx, driverID, false); err != nil {
		return nil, err
	}
	to, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DriverID == nil || *o.DriverID != driverID {
		return nil, ErrNotAssigned
	}
	if to != models.OrderStatusOnWay && to != models.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: drivers may only set %s or %s", ErrInvalidTransition, models.OrderStatusOnWay, models.OrderStatusDelivered)
	}
	if !models.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	return s.transition(ctx, o, to, DriverActor(driverID), message)
}
