package store

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, f *Feed[T]) T {
	t.Helper()
	select {
	case snap := <-f.Snapshots():
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestSubscribeOrdersPushesOnChange(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	feed, err := m.SubscribeOrders(ctx)
	require.NoError(t, err)
	defer feed.Dispose()

	assert.Empty(t, recv(t, feed))

	_, err = m.CreateOrder(ctx, &models.Order{
		CustomerName: "Ana",
		Mode:         models.ModePickup,
		Address:      models.PickupAddress,
		Status:       models.OrderStatusPending,
		Total:        3290,
		Subtotal:     3290,
	})
	require.NoError(t, err)

	snap := recv(t, feed)
	require.Len(t, snap, 1)
	assert.Equal(t, "Ana", snap[0].CustomerName)
	assert.NotEmpty(t, snap[0].ID)
}

func TestSubscribeUserOrdersFiltersByUID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ana := "uid-ana"
	bia := "uid-bia"
	_, err := m.CreateOrder(ctx, &models.Order{CustomerName: "Ana", UserID: &ana, Status: models.OrderStatusPending})
	require.NoError(t, err)
	_, err = m.CreateOrder(ctx, &models.Order{CustomerName: "Bia", UserID: &bia, Status: models.OrderStatusPending})
	require.NoError(t, err)
	_, err = m.CreateOrder(ctx, &models.Order{CustomerName: "Guest", Status: models.OrderStatusPending})
	require.NoError(t, err)

	feed, err := m.SubscribeUserOrders(ctx, ana)
	require.NoError(t, err)
	defer feed.Dispose()

	snap := recv(t, feed)
	require.Len(t, snap, 1)
	assert.Equal(t, "Ana", snap[0].CustomerName)
}

func TestZoneDeactivationLeavesPlacedOrdersUntouched(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	zoneID, err := m.CreateZone(ctx, &models.DeliveryZone{Name: "Centro", Fee: 590, Active: true})
	require.NoError(t, err)

	orderID, err := m.CreateOrder(ctx, &models.Order{
		CustomerName: "Ana",
		Mode:         models.ModeDelivery,
		ZoneName:     "Centro",
		DeliveryFee:  590,
		Subtotal:     6580,
		Total:        7170,
		Status:       models.OrderStatusPending,
	})
	require.NoError(t, err)

	inactive := false
	require.NoError(t, m.UpdateZone(ctx, zoneID, models.ZoneUpdate{Active: &inactive}))

	orders, err := m.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.Equal(t, int64(590), orders[0].DeliveryFee)
	assert.Equal(t, int64(7170), orders[0].Total)
}

func TestDisposeStopsDelivery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	feed, err := m.SubscribeOrders(ctx)
	require.NoError(t, err)
	recv(t, feed)

	feed.Dispose()

	_, err = m.CreateOrder(ctx, &models.Order{CustomerName: "Ana", Status: models.OrderStatusPending})
	require.NoError(t, err)

	select {
	case snap := <-feed.Snapshots():
		assert.Empty(t, snap, "no snapshot should arrive after dispose")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	m := NewMemory()
	err := m.UpdateOrderStatus(context.Background(), "missing", models.OrderStatusUpdate{Status: models.OrderStatusPreparing})

	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, CollectionOrders, perr.Collection)
}
