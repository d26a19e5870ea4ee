package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"foodDelivery/internal/testutil"
	"foodDelivery/models"
)

func newTestOrder(number string) *models.Order {
	return &models.Order{
		OrderNumber:     number,
		CustomerName:    "Jane",
		CustomerPhone:   "555-0100",
		DeliveryAddress: "1 Main St",
		Items: models.LineItems{
			{Name: "Burger", Quantity: 2, Price: 20},
			{Name: "Fries", Quantity: 1, Price: 15},
		},
		Subtotal:    55,
		DeliveryFee: 5,
		TotalAmount: 60,
	}
}

func TestOrderCreate_WritesFirstTrackingEntry(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_create")
	orders := NewOrderRepository(d)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0001"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if o.ID == 0 || o.Status != models.OrderStatusPending || o.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("unexpected order after create: %+v", o)
	}
	if len(o.Items) != 2 || o.Items[0].Name != "Burger" || o.Items[1].Quantity != 1 {
		t.Fatalf("items not round-tripped: %+v", o.Items)
	}

	entries, err := orders.ListTracking(ctx, o.ID)
	if err != nil {
		t.Fatalf("list tracking: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 tracking entry, got %d", len(entries))
	}
	if entries[0].Status != models.OrderStatusPending || entries[0].CreatedByType != models.CreatorSystem || entries[0].Message != "Order placed" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	byNumber, err := orders.GetByNumber(ctx, "ORD-TEST0001")
	if err != nil || byNumber == nil || byNumber.ID != o.ID {
		t.Fatalf("get by number: %+v err=%v", byNumber, err)
	}
}

func TestOrderGet_MissingReturnsNil(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_missing")
	orders := NewOrderRepository(d)
	o, err := orders.GetByID(context.Background(), 999)
	if err != nil || o != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", o, err)
	}
}

func TestTransitionStatus_AppendsTrackingAndGuardsFrom(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_transition")
	orders := NewOrderRepository(d)
	ctx := context.Background()

	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0002"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	adminID := int64(7)
	if err := orders.TransitionStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed,
		&models.TrackingEntry{CreatedBy: &adminID, CreatedByType: models.CreatorAdmin}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Stale from status.
	err = orders.TransitionStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{})
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	err = orders.TransitionStatus(ctx, 12345, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for missing order, got %v", err)
	}

	entries, err := orders.ListTracking(ctx, o.ID)
	if err != nil {
		t.Fatalf("list tracking: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status != models.OrderStatusConfirmed || entries[0].CreatedByType != models.CreatorAdmin ||
		entries[0].CreatedBy == nil || *entries[0].CreatedBy != adminID {
		t.Fatalf("newest entry should be the confirmation: %+v", entries[0])
	}
}

func TestTransitionStatus_ConcurrentSameFromOneWins(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_race")
	orders := NewOrderRepository(d)
	ctx := context.Background()
	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0003"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = orders.TransitionStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStatusChanged):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one winner and one conflict, got ok=%d conflicts=%d", ok, conflicts)
	}
	entries, _ := orders.ListTracking(ctx, o.ID)
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 tracking entries, got %d", len(entries))
	}
}

func TestAssignDriver_OnlyIfUnassigned(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_assign")
	orders := NewOrderRepository(d)
	drivers := NewDriverRepository(d)
	ctx := context.Background()

	d1, err := drivers.Create(ctx, &models.Driver{Name: "Ann", Phone: "111", PasswordHash: "x", IsActive: true, IsAvailable: true})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	d2, err := drivers.Create(ctx, &models.Driver{Name: "Bob", Phone: "222", PasswordHash: "x", IsActive: true, IsAvailable: true})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0004"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := orders.TransitionStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	avail, err := orders.ListAvailable(ctx)
	if err != nil || len(avail) != 1 || avail[0].ID != o.ID {
		t.Fatalf("available orders: %+v err=%v", avail, err)
	}

	if err := orders.AssignDriver(ctx, o.ID, d1.ID, true, &models.TrackingEntry{Message: "Driver Ann assigned", CreatedBy: &d1.ID, CreatedByType: models.CreatorDriver}); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if err := orders.AssignDriver(ctx, o.ID, d2.ID, true, &models.TrackingEntry{}); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	got, _ := orders.GetByID(ctx, o.ID)
	if got.DriverID == nil || *got.DriverID != d1.ID {
		t.Fatalf("driver not assigned: %+v", got.DriverID)
	}
	entries, _ := orders.ListTracking(ctx, o.ID)
	if entries[0].Message != "Driver Ann assigned" || entries[0].Status != models.OrderStatusConfirmed {
		t.Fatalf("unexpected assignment entry: %+v", entries[0])
	}
	mine, err := orders.ListByDriver(ctx, d1.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("list by driver: %d err=%v", len(mine), err)
	}
	avail, _ = orders.ListAvailable(ctx)
	if len(avail) != 0 {
		t.Fatalf("assigned order should not be available")
	}
}

func TestDeliveredCreditsDriverEarnings(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_earnings")
	orders := NewOrderRepository(d)
	drivers := NewDriverRepository(d)
	ctx := context.Background()

	drv, err := drivers.Create(ctx, &models.Driver{Name: "Ann", Phone: "111", PasswordHash: "x", IsActive: true})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0005"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := orders.AssignDriver(ctx, o.ID, drv.ID, false, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	path := []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusOnWay, models.OrderStatusDelivered}
	for i := 0; i < len(path)-1; i++ {
		if err := orders.TransitionStatus(ctx, o.ID, path[i], path[i+1], &models.TrackingEntry{}); err != nil {
			t.Fatalf("transition %s->%s: %v", path[i], path[i+1], err)
		}
	}
	st, err := drivers.Stats(ctx, drv.ID)
	if err != nil || st == nil {
		t.Fatalf("stats: %+v err=%v", st, err)
	}
	if st.Earnings != 5 || st.DeliveredOrders != 1 || st.TotalOrders != 1 || st.ActiveOrders != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	counts, err := orders.CountByStatus(ctx)
	if err != nil || counts[models.OrderStatusDelivered] != 1 {
		t.Fatalf("count by status: %+v err=%v", counts, err)
	}
	rev, err := orders.DeliveredRevenue(ctx)
	if err != nil || rev != 60 {
		t.Fatalf("delivered revenue = %v err=%v", rev, err)
	}
}

func TestUpdateDetailsAndList(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_details")
	orders := NewOrderRepository(d)
	ctx := context.Background()

	a, _ := orders.Create(ctx, newTestOrder("ORD-TEST0006"), &models.TrackingEntry{})
	b, _ := orders.Create(ctx, newTestOrder("ORD-TEST0007"), &models.TrackingEntry{})
	if a == nil || b == nil {
		t.Fatalf("create orders failed")
	}
	if err := orders.TransitionStatus(ctx, b.ID, models.OrderStatusPending, models.OrderStatusCancelled, &models.TrackingEntry{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	addr := "2 Side St"
	paid := models.PaymentStatusPaid
	if err := orders.UpdateDetails(ctx, a.ID, OrderDetailsPatch{DeliveryAddress: &addr, PaymentStatus: &paid}); err != nil {
		t.Fatalf("update details: %v", err)
	}
	if err := orders.UpdateDetails(ctx, 999, OrderDetailsPatch{DeliveryAddress: &addr}); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	got, _ := orders.GetByID(ctx, a.ID)
	if got.DeliveryAddress != addr || got.PaymentStatus != paid || got.Status != models.OrderStatusPending {
		t.Fatalf("details not applied: %+v", got)
	}

	pending, err := orders.List(ctx, OrderFilter{Statuses: []models.OrderStatus{models.OrderStatusPending}})
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("list pending: %+v err=%v", pending, err)
	}
	all, err := orders.List(ctx, OrderFilter{})
	if err != nil || len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("list all newest first: %+v err=%v", all, err)
	}
	page, _ := orders.List(ctx, OrderFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != a.ID {
		t.Fatalf("pagination: %+v", page)
	}
}

func TestTransitionWithDetails_StaleStatusWritesNothing(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "repo_order_transition_details")
	orders := NewOrderRepository(d)
	ctx := context.Background()

	o, err := orders.Create(ctx, newTestOrder("ORD-TEST0009"), &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := orders.TransitionStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, &models.TrackingEntry{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	addr := "99 Changed Ave"
	err = orders.TransitionWithDetails(ctx, o.ID, OrderDetailsPatch{DeliveryAddress: &addr},
		models.OrderStatusPending, models.OrderStatusCancelled, &models.TrackingEntry{})
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	got, err := orders.GetByID(ctx, o.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeliveryAddress != "1 Main St" || got.Status != models.OrderStatusConfirmed {
		t.Fatalf("order changed after failed transition: address=%q status=%s", got.DeliveryAddress, got.Status)
	}

	err = orders.TransitionWithDetails(ctx, o.ID, OrderDetailsPatch{DeliveryAddress: &addr},
		models.OrderStatusConfirmed, models.OrderStatusPreparing, &models.TrackingEntry{})
	if err != nil {
		t.Fatalf("transition with details: %v", err)
	}
	got, _ = orders.GetByID(ctx, o.ID)
	if got.DeliveryAddress != addr || got.Status != models.OrderStatusPreparing {
		t.Fatalf("expected address and status written together, got address=%q status=%s", got.DeliveryAddress, got.Status)
	}
	entries, _ := orders.ListTracking(ctx, o.ID)
	if len(entries) != 3 {
		t.Fatalf("expected 3 tracking entries, got %d", len(entries))
	}
}
