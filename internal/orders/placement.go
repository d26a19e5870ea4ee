package orders

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"foodDelivery/internal/metrics"
	"foodDelivery/models"
)

// PlaceRequest is a customer's order submission.
type PlaceRequest struct {
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	CustomerEmail   *string           `json:"customerEmail,omitempty"`
	DeliveryAddress string            `json:"deliveryAddress"`
	Latitude        *float64          `json:"latitude,omitempty"`
	Longitude       *float64          `json:"longitude,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	RestaurantID    *int64            `json:"restaurantId,omitempty"`
	Items           []models.LineItem `json:"items"`
	PaymentMethod   string            `json:"paymentMethod"`
	DeliveryFee     float64           `json:"deliveryFee"`
	SpecialOfferID  *int64            `json:"specialOfferId,omitempty"`
}

func (r *PlaceRequest) validate() error {
	switch {
	case strings.TrimSpace(r.CustomerName) == "":
		return fmt.Errorf("%w: customerName is required", ErrInvalidOrder)
	case strings.TrimSpace(r.CustomerPhone) == "":
		return fmt.Errorf("%w: customerPhone is required", ErrInvalidOrder)
	case strings.TrimSpace(r.DeliveryAddress) == "":
		return fmt.Errorf("%w: deliveryAddress is required", ErrInvalidOrder)
	case len(r.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	case r.DeliveryFee < 0:
		return fmt.Errorf("%w: deliveryFee must not be negative", ErrInvalidOrder)
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidOrder, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity must be positive", ErrInvalidOrder, it.Name)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: item %q price must not be negative", ErrInvalidOrder, it.Name)
		}
	}
	if r.PaymentMethod != "" && !models.PaymentMethod(r.PaymentMethod).Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, r.PaymentMethod)
	}
	return nil
}

// Subtotal is the sum of price times quantity, rounded to cents.
func Subtotal(items []models.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return round2(sum)
}

// Place validates and prices req, then stores it as a pending order with its first
// tracking entry.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	subtotal := Subtotal(req.Items)

	var discount float64
	if req.SpecialOfferID != nil {
		offer, err := s.offers.Get(ctx, *req.SpecialOfferID)
		if err != nil {
			return nil, fmt.Errorf("get offer %d: %w", *req.SpecialOfferID, err)
		}
		if !offer.Applicable(subtotal, s.now()) {
			return nil, fmt.Errorf("%w: special offer %d cannot be applied", ErrInvalidOrder, *req.SpecialOfferID)
		}
		discount = round2(offer.DiscountFor(subtotal))
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.PaymentCash
	}
	o := &models.Order{
		OrderNumber:     NewOrderNumber(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:   req.CustomerEmail,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Notes:           req.Notes,
		RestaurantID:    req.RestaurantID,
		Items:           models.LineItems(req.Items),
		Subtotal:        subtotal,
		Discount:        discount,
		DeliveryFee:     round2(req.DeliveryFee),
		TotalAmount:     round2(subtotal - discount + req.DeliveryFee),
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusPending,
		SpecialOfferID:  req.SpecialOfferID,
	}
	created, err := s.orders.Create(ctx, o, SystemActor().entry(models.StatusMessage(models.OrderStatusPending)))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrderCreated()
	logrus.WithFields(logrus.Fields{
		"order": created.OrderNumber,
		"total": created.TotalAmount,
	}).Info("order placed")
	return created, nil
}

// NewOrderNumber returns a public order reference such as ORD-1A2B3C4D.
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
