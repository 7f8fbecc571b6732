package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/store"
)

// fakeCartStore backs both the per-request cart archive and the submission
// cache so the persistence paths are observable without a running redis.
type fakeCartStore struct {
	saves    map[string][]models.CartLine
	cleared  []string
	reserved map[string]bool
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		saves:    make(map[string][]models.CartLine),
		reserved: make(map[string]bool),
	}
}

func (f *fakeCartStore) SaveCart(_ context.Context, sessionID string, lines []models.CartLine) error {
	f.saves[sessionID] = lines
	return nil
}

func (f *fakeCartStore) ClearCart(_ context.Context, sessionID string) error {
	delete(f.saves, sessionID)
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func (f *fakeCartStore) ReserveSubmission(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.reserved[key] {
		return false, nil
	}
	f.reserved[key] = true
	return true, nil
}

func (f *fakeCartStore) ReleaseSubmission(_ context.Context, key string) error {
	delete(f.reserved, key)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *state.App, *store.Memory) {
	t.Helper()
	router, app, mem, _ := newArchivedRouter(t)
	return router, app, mem
}

func newArchivedRouter(t *testing.T) (*gin.Engine, *state.App, *store.Memory, *fakeCartStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := state.New(notify.NewCenter())
	mem := store.NewMemory()
	carts := newFakeCartStore()
	h := NewHandler(app,
		service.NewOrderService(app, mem, carts, nil),
		service.NewCatalogService(app, mem),
		carts)

	router := gin.New()
	h.SetupRoutes(router)
	return router, app, mem, carts
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartFlowOverHTTP(t *testing.T) {
	router, app, _ := newTestRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "Marmita P", Price: 1890}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cartResp struct {
		Items     []models.CartLine `json:"items"`
		Subtotal  int64             `json:"subtotal"`
		ItemCount int               `json:"item_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	require.Len(t, cartResp.Items, 1)
	assert.Equal(t, 2, cartResp.Items[0].Quantity)
	assert.Equal(t, int64(3780), cartResp.Subtotal)
	assert.Equal(t, 2, cartResp.ItemCount)
}

func TestCartMutationsPersistSnapshot(t *testing.T) {
	router, app, _, carts := newArchivedRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "Marmita P", Price: 1890}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, carts.saves[DefaultCartSession], 1)
	assert.Equal(t, "p1", carts.saves[DefaultCartSession][0].ProductID)

	// a session header namespaces the snapshot
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(gin.H{"product_id": "p1"}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "tab-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, carts.saves["tab-2"], 1)
	assert.Equal(t, 2, carts.saves["tab-2"][0].Quantity)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, carts.saves[DefaultCartSession])
}

func TestCheckoutClearsPersistedCartSession(t *testing.T) {
	router, app, _, carts := newArchivedRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "Marmita P", Price: 1890}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, carts.saves[DefaultCartSession])

	w = doJSON(t, router, http.MethodPost, "/api/v1/checkout", gin.H{
		"customer_name": "Maria",
		"mode":          "pickup",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{DefaultCartSession}, carts.cleared)
	assert.Empty(t, carts.saves[DefaultCartSession])
}

func TestChangeQuantityZeroDeltaIsNoOp(t *testing.T) {
	router, app, _ := newTestRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "Marmita P", Price: 1890}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items/quantity", gin.H{"product_id": "p1", "delta": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, app.Cart().ItemCount())
}

func TestAddUnknownProductIs404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddPausedProductIs422(t *testing.T) {
	router, app, _ := newTestRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "Marmita P", Price: 1890, IsPaused: true}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "p1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, app.Cart().Lines())
}

func TestCheckoutOverHTTP(t *testing.T) {
	router, app, mem := newTestRouter(t)
	app.ReplaceProducts([]models.Product{{ID: "p1", Name: "X-Burger Especial", Price: 3290}})
	app.ReplaceZones([]models.DeliveryZone{{ID: "z1", Name: "Centro", Fee: 590, Active: true}})
	app.AddToCart(models.Product{ID: "p1", Name: "X-Burger Especial", Price: 3290}, "")
	app.AddToCart(models.Product{ID: "p1", Name: "X-Burger Especial", Price: 3290}, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/checkout", gin.H{
		"customer_name": "Maria",
		"mode":          "delivery",
		"zone_name":     "Centro",
		"address":       "Rua das Flores, 123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(7170), result.Order.Total)
	assert.Contains(t, result.WhatsAppLink, "https://wa.me/")

	persisted, err := mem.Orders(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestCheckoutValidationIs422(t *testing.T) {
	router, app, _ := newTestRouter(t)
	app.AddToCart(models.Product{ID: "p1", Name: "Marmita P", Price: 1890}, "")

	w := doJSON(t, router, http.MethodPost, "/api/v1/checkout", gin.H{
		"mode": "delivery",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdvanceOrderConflict(t *testing.T) {
	router, app, _ := newTestRouter(t)
	app.ReplaceOrders([]models.Order{{ID: "o1", Status: models.OrderStatusPending}})

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders/o1/status", gin.H{"status": models.OrderStatusDone})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders/missing/status", gin.H{"status": models.OrderStatusPreparing})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	router, app, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPatch, "/api/v1/settings", gin.H{"is_open": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, app.Settings().IsOpen)

	w = doJSON(t, router, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var settings models.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.False(t, settings.IsOpen)
}

func TestAnalyticsEndpointServesFallback(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sem dados ainda")
}
