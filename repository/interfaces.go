package repository

import (
	"context"
	"errors"
	"time"

	"foodDelivery/models"
)

const (
	queryTimeout = 3 * time.Second
	listTimeout  = 5 * time.Second
)

var (
	// ErrStatusChanged is returned when an order's status no longer matches the
	// status a transition was computed from.
	ErrStatusChanged = errors.New("order status changed concurrently")
	// ErrAlreadyAssigned is returned when an order already has a driver, or is closed.
	ErrAlreadyAssigned = errors.New("order already assigned")
)

// OrderRepositoryI defines operations on Order entities and their tracking log.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order, entry *models.TrackingEntry) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
	UpdateDetails(ctx context.Context, id int64, p OrderDetailsPatch) error
	TransitionStatus(ctx context.Context, id int64, from, to models.OrderStatus, entry *models.TrackingEntry) error
	TransitionWithDetails(ctx context.Context, id int64, p OrderDetailsPatch, from, to models.OrderStatus, entry *models.TrackingEntry) error
	AssignDriver(ctx context.Context, orderID, driverID int64, onlyIfUnassigned bool, entry *models.TrackingEntry) error
	ListTracking(ctx context.Context, orderID int64) ([]models.TrackingEntry, error)
	ListByDriver(ctx context.Context, driverID int64) ([]models.Order, error)
	ListAvailable(ctx context.Context) ([]models.Order, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error)
	DeliveredRevenue(ctx context.Context) (float64, error)
}

// DriverRepositoryI defines operations on Driver entities.
type DriverRepositoryI interface {
	Create(ctx context.Context, d *models.Driver) (*models.Driver, error)
	GetByID(ctx context.Context, id int64) (*models.Driver, error)
	GetByPhone(ctx context.Context, phone string) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
	Update(ctx context.Context, d *models.Driver) error
	Delete(ctx context.Context, id int64) error
	SetAvailability(ctx context.Context, id int64, available bool) error
	Stats(ctx context.Context, id int64) (*models.DriverStats, error)
}

// AdminRepositoryI defines operations on Admin entities.
type AdminRepositoryI interface {
	Create(ctx context.Context, username, passwordHash, name string) (*models.Admin, error)
	GetByID(ctx context.Context, id int64) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateProfile(ctx context.Context, id int64, name string, email *string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Count(ctx context.Context) (int, error)
}
