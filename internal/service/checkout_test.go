package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/state"
	"storefront/internal/store"
)

func newTestApp() *state.App {
	return state.New(notify.NewCenter())
}

// fakeCache is an in-memory SubmissionCache.
type fakeCache struct {
	reserved map[string]bool
	released []string
	cleared  []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{reserved: make(map[string]bool)}
}

func (f *fakeCache) ReserveSubmission(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.reserved[key] {
		return false, nil
	}
	f.reserved[key] = true
	return true, nil
}

func (f *fakeCache) ReleaseSubmission(_ context.Context, key string) error {
	delete(f.reserved, key)
	f.released = append(f.released, key)
	return nil
}

func (f *fakeCache) ClearCart(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func seedCheckout(app *state.App) {
	app.ReplaceZones([]models.DeliveryZone{
		{ID: "z1", Name: "Centro", Fee: 590, Active: true},
		{ID: "z2", Name: "Jardins", Fee: 890, Active: true},
	})
	app.Cart().AddLine(models.Product{ID: "p1", Name: "X-Burger Especial", Price: 3290, Category: "Burgers"}, "")
	app.Cart().AddLine(models.Product{ID: "p1", Name: "X-Burger Especial", Price: 3290, Category: "Burgers"}, "")
}

func TestCheckoutDeliveryHappyPath(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	svc := NewOrderService(app, mem, nil, nil)
	seedCheckout(app)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Maria",
		Mode:         models.ModeDelivery,
		ZoneName:     "Centro",
		Address:      "Rua das Flores, 123",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6580), res.Order.Subtotal)
	assert.Equal(t, int64(590), res.Order.DeliveryFee)
	assert.Equal(t, int64(7170), res.Order.Total)

	var itemSum int64
	for _, it := range res.Order.Items {
		itemSum += it.Price * int64(it.Quantity)
	}
	assert.Equal(t, itemSum, res.Order.Subtotal, "amounts must agree with the frozen items")
	assert.Equal(t, models.OrderStatusPending, res.Order.Status)
	assert.Equal(t, "Rua das Flores, 123 - Centro", res.Order.Address)
	assert.NotEmpty(t, res.Order.ID)
	assert.Nil(t, res.Order.UserID)

	assert.Empty(t, app.Cart().Lines(), "cart should be cleared after submission")
	assert.Contains(t, res.WhatsAppMessage, "2x X-Burger Especial")
	assert.Contains(t, res.WhatsAppMessage, "R$ 71,70")
	assert.Contains(t, res.WhatsAppLink, "https://wa.me/5511999999999?text=")

	persisted, err := mem.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(7170), persisted[0].Total)
}

func TestCheckoutPickupFreeAndMarked(t *testing.T) {
	app := newTestApp()
	svc := NewOrderService(app, store.NewMemory(), nil, nil)
	seedCheckout(app)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "João",
		Mode:         models.ModePickup,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Order.DeliveryFee)
	assert.Equal(t, int64(6580), res.Order.Total)
	assert.Equal(t, models.PickupAddress, res.Order.Address)
	assert.Empty(t, res.Order.ZoneName)
}

func TestCheckoutValidationRejectsBeforeStore(t *testing.T) {
	cases := []struct {
		name   string
		req    CheckoutRequest
		reason string
	}{
		{"delivery missing zone", CheckoutRequest{CustomerName: "Maria", Mode: models.ModeDelivery, Address: "Rua A"}, ReasonMissingFields},
		{"delivery missing address", CheckoutRequest{CustomerName: "Maria", Mode: models.ModeDelivery, ZoneName: "Centro"}, ReasonMissingFields},
		{"delivery missing name", CheckoutRequest{Mode: models.ModeDelivery, ZoneName: "Centro", Address: "Rua A"}, ReasonMissingFields},
		{"pickup missing name", CheckoutRequest{Mode: models.ModePickup}, ReasonMissingName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp()
			mem := store.NewMemory()
			svc := NewOrderService(app, mem, nil, nil)
			seedCheckout(app)

			_, err := svc.Checkout(context.Background(), tc.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)
			assert.Zero(t, mem.CreateOrderCalls(), "rejection must not reach the store")
			assert.Len(t, app.Cart().Lines(), 1, "cart must be untouched")

			toasts := app.Toasts().Active()
			require.Len(t, toasts, 1)
			assert.Equal(t, models.ToastError, toasts[0].Severity)
		})
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	svc := NewOrderService(app, mem, nil, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{CustomerName: "Maria", Mode: models.ModePickup})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonEmptyCart, verr.Reason)
	assert.Zero(t, mem.CreateOrderCalls())
}

func TestCheckoutStoreFailureKeepsCart(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	mem.FailNextWrite(errors.New("connection reset"))
	svc := NewOrderService(app, mem, nil, nil)
	seedCheckout(app)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Maria",
		Mode:         models.ModeDelivery,
		ZoneName:     "Centro",
		Address:      "Rua das Flores, 123",
	})
	require.Error(t, err)

	assert.Len(t, app.Cart().Lines(), 1, "cart survives a failed submission")
	assert.Equal(t, 2, app.Cart().ItemCount())

	toasts := app.Toasts().Active()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Falha ao criar pedido. Tente novamente.", toasts[0].Message)
}

func TestCheckoutAttachesSignedInUser(t *testing.T) {
	app := newTestApp()
	uid := "user-42"
	app.SetIdentity(&uid, "user@example.com")
	svc := NewOrderService(app, store.NewMemory(), nil, nil)
	seedCheckout(app)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{CustomerName: "Maria", Mode: models.ModePickup})
	require.NoError(t, err)
	require.NotNil(t, res.Order.UserID)
	assert.Equal(t, "user-42", *res.Order.UserID)
}

func TestCheckoutDuplicateSubmissionRejected(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	cache := newFakeCache()
	svc := NewOrderService(app, mem, cache, nil)
	seedCheckout(app)

	req := CheckoutRequest{CustomerName: "Maria", Mode: models.ModePickup, IdempotencyKey: "key-1"}
	_, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	seedCheckout(app)
	_, err = svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, 1, mem.CreateOrderCalls(), "replay must not reach the store")
}

func TestCheckoutStoreFailureReleasesSubmissionKey(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	mem.FailNextWrite(errors.New("connection reset"))
	cache := newFakeCache()
	svc := NewOrderService(app, mem, cache, nil)
	seedCheckout(app)

	req := CheckoutRequest{CustomerName: "Maria", Mode: models.ModePickup, IdempotencyKey: "key-1"}
	_, err := svc.Checkout(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, cache.released, "key-1")

	// retry with the same key goes through
	res, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.ID)
}

func TestCheckoutClearsPersistedCart(t *testing.T) {
	app := newTestApp()
	cache := newFakeCache()
	svc := NewOrderService(app, store.NewMemory(), cache, nil)
	seedCheckout(app)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Maria",
		Mode:         models.ModePickup,
		SessionID:    "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, cache.cleared)
}

func TestZoneEditsLeavePlacedOrderFeeUntouched(t *testing.T) {
	app := newTestApp()
	mem := store.NewMemory()
	svc := NewOrderService(app, mem, nil, nil)
	catalog := NewCatalogService(app, mem)

	zoneID, err := catalog.CreateZone(context.Background(), &models.DeliveryZone{Name: "Centro", Fee: 590, Active: true})
	require.NoError(t, err)
	app.ReplaceZones([]models.DeliveryZone{{ID: zoneID, Name: "Centro", Fee: 590, Active: true}})
	app.Cart().AddLine(models.Product{ID: "p1", Name: "X-Burger Especial", Price: 3290}, "")

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Maria",
		Mode:         models.ModeDelivery,
		ZoneName:     "Centro",
		Address:      "Rua das Flores, 123",
	})
	require.NoError(t, err)
	require.Equal(t, int64(590), res.Order.DeliveryFee)

	// reprice and deactivate the zone after the order landed
	fee := int64(990)
	active := false
	require.NoError(t, catalog.UpdateZone(context.Background(), zoneID, models.ZoneUpdate{Fee: &fee, Active: &active}))

	persisted, err := mem.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(590), persisted[0].DeliveryFee)
	assert.Equal(t, int64(3880), persisted[0].Total)
}

func TestCheckoutInactiveZoneChargesNothing(t *testing.T) {
	app := newTestApp()
	svc := NewOrderService(app, store.NewMemory(), nil, nil)
	app.ReplaceZones([]models.DeliveryZone{{ID: "z1", Name: "Centro", Fee: 590, Active: false}})
	app.Cart().AddLine(models.Product{ID: "p1", Name: "Marmita P", Price: 1890}, "")

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		CustomerName: "Maria",
		Mode:         models.ModeDelivery,
		ZoneName:     "Centro",
		Address:      "Rua A",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Order.DeliveryFee)
	assert.Equal(t, int64(1890), res.Order.Total)
}
