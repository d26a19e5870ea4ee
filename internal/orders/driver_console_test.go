package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDelivery/models"
)

func (f *fixture) driver(t *testing.T, name, phone string, available bool) *models.Driver {
	t.Helper()
	d, err := f.drivers.Create(context.Background(), &models.Driver{Name: name, Phone: phone, PasswordHash: "x", IsActive: true, IsAvailable: available})
	require.NoError(t, err)
	return d
}

func (f *fixture) confirmedOrder(t *testing.T) *models.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.Place(ctx, samplePlaceRequest())
	require.NoError(t, err)
	o, err = f.svc.Advance(ctx, o.ID, AdminActor(1))
	require.NoError(t, err)
	return o
}

func TestAccept_SecondDriverConflicts(t *testing.T) {
	f := newFixture(t, "console_accept")
	ctx := context.Background()
	ann := f.driver(t, "Ann", "111", true)
	bob := f.driver(t, "Bob", "222", true)
	o := f.confirmedOrder(t)

	avail, err := f.svc.AvailableOrders(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, avail, 1)

	got, err := f.svc.Accept(ctx, ann.ID, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, ann.ID, *got.DriverID)

	_, err = f.svc.Accept(ctx, bob.ID, o.ID)
	assert.ErrorIs(t, err, ErrConflict)

	tr, err := f.svc.Track(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "Driver Ann assigned", tr.Tracking[0].Message)
	assert.Equal(t, models.CreatorDriver, tr.Tracking[0].CreatedByType)

	mine, err := f.svc.DriverOrders(ctx, ann.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestAccept_RequiresAvailableDriverAndOpenOrder(t *testing.T) {
	f := newFixture(t, "console_unavailable")
	ctx := context.Background()
	off := f.driver(t, "Off", "333", false)
	on := f.driver(t, "On", "444", true)

	_, err := f.svc.AvailableOrders(ctx, off.ID)
	assert.ErrorIs(t, err, ErrDriverUnavailable)

	pending, err := f.svc.Place(ctx, samplePlaceRequest())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, on.ID, pending.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Accept(ctx, 999, pending.ID)
	assert.ErrorIs(t, err, ErrDriverNotFound)
}

func TestDriverSetStatus(t *testing.T) {
	f := newFixture(t, "console_status")
	ctx := context.Background()
	ann := f.driver(t, "Ann", "111", true)
	bob := f.driver(t, "Bob", "222", true)
	o := f.confirmedOrder(t)
	_, err := f.svc.Accept(ctx, ann.ID, o.ID)
	require.NoError(t, err)

	_, err = f.svc.DriverSetStatus(ctx, bob.ID, o.ID, "on_way", "")
	assert.ErrorIs(t, err, ErrNotAssigned)
	_, err = f.svc.DriverSetStatus(ctx, ann.ID, o.ID, "preparing", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	// confirmed -> on_way skips preparing.
	_, err = f.svc.DriverSetStatus(ctx, ann.ID, o.ID, "on_way", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Advance(ctx, o.ID, AdminActor(1))
	require.NoError(t, err)
	got, err := f.svc.DriverSetStatus(ctx, ann.ID, o.ID, "on_way", "Picked up")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOnWay, got.Status)
	got, err = f.svc.DriverSetStatus(ctx, ann.ID, o.ID, "delivered", "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)

	d, err := f.drivers.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, d.Earnings)
}

func TestAssignDriver_ByAdmin(t *testing.T) {
	f := newFixture(t, "console_admin_assign")
	ctx := context.Background()
	ann := f.driver(t, "Ann", "111", false)
	bob := f.driver(t, "Bob", "222", false)
	o := f.confirmedOrder(t)

	got, err := f.svc.AssignDriver(ctx, o.ID, ann.ID, AdminActor(1))
	require.NoError(t, err)
	assert.Equal(t, ann.ID, *got.DriverID)
	got, err = f.svc.AssignDriver(ctx, o.ID, bob.ID, AdminActor(1))
	require.NoError(t, err)
	assert.Equal(t, bob.ID, *got.DriverID)

	_, err = f.svc.AssignDriver(ctx, o.ID, 999, AdminActor(1))
	assert.ErrorIs(t, err, ErrDriverNotFound)
	_, err = f.svc.AssignDriver(ctx, 999, ann.ID, AdminActor(1))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
