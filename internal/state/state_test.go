package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/notify"
)

func newApp() *App {
	return New(notify.NewCenterTTL(time.Minute))
}

func TestAddToCartClosedStore(t *testing.T) {
	app := newApp()
	open := false
	app.ApplySettings(models.SettingsUpdate{IsOpen: &open})

	ok := app.AddToCart(models.Product{ID: "p1", Name: "Marmita P", Price: 1890}, "")

	assert.False(t, ok)
	assert.Empty(t, app.Cart().Lines())

	toasts := app.Toasts().Active()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Fechado", toasts[0].Title)
	assert.Equal(t, "A loja está fechada no momento.", toasts[0].Message)
}

func TestAddToCartPausedProduct(t *testing.T) {
	app := newApp()

	ok := app.AddToCart(models.Product{ID: "p1", Name: "Marmita P", Price: 1890, IsPaused: true}, "")

	assert.False(t, ok)
	assert.Empty(t, app.Cart().Lines())

	toasts := app.Toasts().Active()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Indisponível", toasts[0].Title)
}

func TestAddToCartSuccessToast(t *testing.T) {
	app := newApp()

	ok := app.AddToCart(models.Product{ID: "p1", Name: "Marmita P", Price: 1890}, "sem cebola")

	assert.True(t, ok)
	require.Len(t, app.Cart().Lines(), 1)

	toasts := app.Toasts().Active()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Adicionado", toasts[0].Title)
	assert.Equal(t, "Marmita P +1", toasts[0].Message)
}

func TestSnapshotOverwritesOptimisticStatus(t *testing.T) {
	app := newApp()
	app.ReplaceOrders([]models.Order{{ID: "o1", Status: models.OrderStatusPending}})

	app.SetOrderStatus("o1", models.OrderStatusPreparing)
	got, _ := app.OrderByID("o1")
	require.Equal(t, models.OrderStatusPreparing, got.Status)

	app.ReplaceOrders([]models.Order{{ID: "o1", Status: models.OrderStatusPending}})
	got, _ = app.OrderByID("o1")
	assert.Equal(t, models.OrderStatusPending, got.Status, "authoritative snapshot wins over local edits")
}

func TestReplaceUserOrdersReturnsPrevious(t *testing.T) {
	app := newApp()
	first := []models.Order{{ID: "o1", Status: models.OrderStatusPending}}
	second := []models.Order{{ID: "o1", Status: models.OrderStatusPreparing}}

	prev := app.ReplaceUserOrders(first)
	assert.Empty(t, prev)

	prev = app.ReplaceUserOrders(second)
	require.Len(t, prev, 1)
	assert.Equal(t, models.OrderStatusPending, prev[0].Status)
}

func TestSignOutClearsProfile(t *testing.T) {
	app := newApp()
	uid := "u1"
	app.SetIdentity(&uid, "u@example.com")
	app.SetUserProfile(&models.UserProfile{UID: uid, DisplayName: "Maria"})

	app.SetIdentity(nil, "")

	gotUID, email := app.Identity()
	assert.Nil(t, gotUID)
	assert.Empty(t, email)
	assert.Nil(t, app.UserProfile())
}

func TestActiveZonesFilter(t *testing.T) {
	app := newApp()
	app.ReplaceZones([]models.DeliveryZone{
		{ID: "z1", Name: "Centro", Active: true},
		{ID: "z2", Name: "Jardins", Active: false},
	})

	active := app.ActiveZones()
	require.Len(t, active, 1)
	assert.Equal(t, "Centro", active[0].Name)
}
