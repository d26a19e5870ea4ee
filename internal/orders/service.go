// Package orders implements the order lifecycle: placement, validated status
// transitions with their tracking log, tracking reads and driver assignment.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foodDelivery/internal/metrics"
	"foodDelivery/models"
	"foodDelivery/repository"
)

// OfferReader is the subset of the offer store used when pricing an order.
type OfferReader interface {
	Get(ctx context.Context, id int64) (*models.SpecialOffer, error)
}

// Actor identifies who triggers a change; it fills created_by on tracking entries.
type Actor struct {
	ID   *int64
	Type models.CreatorType
}

func SystemActor() Actor { return Actor{Type: models.CreatorSystem} }

func AdminActor(id int64) Actor { return Actor{ID: &id, Type: models.CreatorAdmin} }

func DriverActor(id int64) Actor { return Actor{ID: &id, Type: models.CreatorDriver} }

func (a Actor) entry(message string) *models.TrackingEntry {
	return &models.TrackingEntry{Message: message, CreatedBy: a.ID, CreatedByType: a.Type}
}

// Tracking is the public view of an order's progress.
type Tracking struct {
	Order    *models.Order          `json:"order"`
	Tracking []models.TrackingEntry `json:"tracking"`
	Progress int                    `json:"progress"`
}

// Stats summarises orders for the admin dashboard.
type Stats struct {
	TotalOrders      int                        `json:"totalOrders"`
	OrdersByStatus   map[models.OrderStatus]int `json:"ordersByStatus"`
	DeliveredRevenue float64                    `json:"deliveredRevenue"`
}

type Service struct {
	orders  repository.OrderRepositoryI
	drivers repository.DriverRepositoryI
	offers  OfferReader
	now     func() time.Time
}

func NewService(orders repository.OrderRepositoryI, drivers repository.DriverRepositoryI, offers OfferReader) *Service {
	return &Service{orders: orders, drivers: drivers, offers: offers, now: time.Now}
}

// Get returns an order or ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	return s.orders.List(ctx, f)
}

// Track resolves ref as a numeric id or an order number and returns the order with
// its tracking log, newest entry first.
func (s *Service) Track(ctx context.Context, ref string) (*Tracking, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrOrderNotFound
	}
	var (
		o   *models.Order
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		o, err = s.orders.GetByID(ctx, id)
	} else {
		o, err = s.orders.GetByNumber(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, fmt.Errorf("track %q: %w", ref, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	entries, err := s.orders.ListTracking(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	return &Tracking{Order: o, Tracking: entries, Progress: models.Progress(o.Status)}, nil
}

// Advance moves the order one step along the forward path.
func (s *Service) Advance(ctx context.Context, id int64, actor Actor) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, _, ok := models.NextStatus(o.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no next status", ErrInvalidTransition, o.Status)
	}
	return s.transition(ctx, o, next, actor, "")
}

// Cancel cancels a pending order. reason, if set, is appended to the tracking message.
func (s *Service) Cancel(ctx context.Context, id int64, actor Actor, reason string) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanCancel(o.Status) {
		return nil, fmt.Errorf("%w: cannot cancel an order that is %s", ErrInvalidTransition, o.Status)
	}
	msg := models.StatusMessage(models.OrderStatusCancelled)
	if reason = strings.TrimSpace(reason); reason != "" {
		msg += ": " + reason
	}
	return s.transition(ctx, o, models.OrderStatusCancelled, actor, msg)
}

// SetStatus moves the order to target if the lifecycle allows it. An empty message
// falls back to the default text for target.
func (s *Service) SetStatus(ctx context.Context, id int64, target string, actor Actor, message string) (*models.Order, error) {
	to, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	return s.transition(ctx, o, to, actor, message)
}

// UpdateDetails edits the non-lifecycle fields of an order and, when status is set
// and differs from the stored one, applies it as a validated transition. An
// unchanged status is not a transition and writes no tracking entry.
func (s *Service) UpdateDetails(ctx context.Context, id int64, p repository.OrderDetailsPatch, status *string, actor Actor) (*models.Order, error) {
	if p.PaymentStatus != nil && *p.PaymentStatus != models.PaymentStatusPending && *p.PaymentStatus != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidOrder, *p.PaymentStatus)
	}
	if p.CustomerName != nil && strings.TrimSpace(*p.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var to models.OrderStatus
	if status != nil && *status != string(o.Status) {
		if to, err = parseTarget(*status); err != nil {
			return nil, err
		}
		if !models.CanTransition(o.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}
	}
	if to != "" {
		return s.transitionWith(ctx, o, p, to, actor, "")
	}
	if err := s.orders.UpdateDetails(ctx, id, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// AssignDriver lets an admin set or replace the driver of an open order.
func (s *Service) AssignDriver(ctx context.Context, orderID, driverID int64, actor Actor) (*models.Order, error) {
	d, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", driverID, err)
	}
	if d == nil {
		return nil, ErrDriverNotFound
	}
	if !d.IsActive {
		return nil, ErrDriverUnavailable
	}
	if err := s.orders.AssignDriver(ctx, orderID, driverID, false, actor.entry(assignedMessage(d))); err != nil {
		return nil, mapAssignErr(orderID, err)
	}
	return s.Get(ctx, orderID)
}

// Stats aggregates order counts and delivered revenue.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	revenue, err := s.orders.DeliveredRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("delivered revenue: %w", err)
	}
	st := &Stats{OrdersByStatus: counts, DeliveredRevenue: round2(revenue)}
	for _, n := range counts {
		st.TotalOrders += n
	}
	return st, nil
}

func (s *Service) transition(ctx context.Context, o *models.Order, to models.OrderStatus, actor Actor, message string) (*models.Order, error) {
	return s.transitionWith(ctx, o, repository.OrderDetailsPatch{}, to, actor, message)
}

// transitionWith writes p, the new status and its tracking entry atomically.
func (s *Service) transitionWith(ctx context.Context, o *models.Order, p repository.OrderDetailsPatch, to models.OrderStatus, actor Actor, message string) (*models.Order, error) {
	from := o.Status
	if err := s.orders.TransitionWithDetails(ctx, o.ID, p, from, to, actor.entry(message)); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, fmt.Errorf("%w: order %d is no longer %s", ErrConflict, o.ID, from)
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("transition order %d: %w", o.ID, err)
	}
	metrics.OrderTransition(string(from), string(to), string(actor.Type))
	logrus.WithFields(logrus.Fields{
		"order": o.OrderNumber,
		"from":  from,
		"to":    to,
		"actor": actor.Type,
	}).Info("order status changed")
	return s.Get(ctx, o.ID)
}

func parseTarget(target string) (models.OrderStatus, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: status is required", ErrInvalidOrder)
	}
	to, err := models.ParseOrderStatus(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return to, nil
}

func mapAssignErr(orderID int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyAssigned):
		return fmt.Errorf("%w: order %d is closed or already has a driver", ErrConflict, orderID)
	case errors.Is(err, sql.ErrNoRows):
		return ErrOrderNotFound
	}
	return fmt.Errorf("assign driver to order %d: %w", orderID, err)
}

func assignedMessage(d *models.Driver) string {
	return "Driver " + d.Name + " assigned"
}
