package state

import (
	"sync"
	"time"

	"storefront/internal/analytics"
	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/util"
)

// App is the process-wide application state: the single cart, the live order
// mirrors, the catalog, zones, settings, the signed-in identity and the
// derived analytics snapshot. Every view of the process observes the same
// state; mutations go through the methods below, never through ambient
// access.
type App struct {
	mu sync.RWMutex

	cart       *cart.Cart
	toasts     *notify.Center
	orders     []models.Order
	userOrders []models.Order
	products   []models.Product
	zones      []models.DeliveryZone
	settings   models.Settings
	analytics  analytics.Snapshot

	userID      *string
	userEmail   string
	userProfile *models.UserProfile
}

// New creates application state with default settings and an empty history
// analytics snapshot.
func New(toasts *notify.Center) *App {
	return &App{
		cart:      cart.New(),
		toasts:    toasts,
		settings:  models.DefaultSettings(),
		analytics: analytics.Compute(nil, time.Now()),
	}
}

// Cart returns the process-wide cart.
func (a *App) Cart() *cart.Cart { return a.cart }

// Toasts returns the toast center.
func (a *App) Toasts() *notify.Center { return a.toasts }

// AddToCart gates a cart add on store and product availability: a closed
// store or a paused product rejects the add with an error toast and no
// mutation. A successful add emits a confirmation toast.
func (a *App) AddToCart(p models.Product, note string) bool {
	a.mu.RLock()
	open := a.settings.IsOpen
	a.mu.RUnlock()

	if !open {
		util.CartAddsRejectedTotal.WithLabelValues("store_closed").Inc()
		a.toasts.Error("Fechado", "A loja está fechada no momento.")
		return false
	}
	if p.IsPaused {
		util.CartAddsRejectedTotal.WithLabelValues("product_paused").Inc()
		a.toasts.Error("Indisponível", "Este produto está temporariamente indisponível.")
		return false
	}

	a.cart.AddLine(p, note)
	util.CartAddsTotal.Inc()
	a.toasts.Success("Adicionado", p.Name+" +1")
	return true
}

// ReplaceOrders applies a full-collection snapshot to the operator mirror.
// Last write wins: the incoming snapshot always overwrites local state,
// including any optimistic edits.
func (a *App) ReplaceOrders(orders []models.Order) {
	a.mu.Lock()
	a.orders = orders
	a.mu.Unlock()
	util.SyncPushesTotal.WithLabelValues("orders").Inc()
}

// Orders returns the operator order mirror.
func (a *App) Orders() []models.Order {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Order, len(a.orders))
	copy(out, a.orders)
	return out
}

// OrderByID looks up an order in the operator mirror.
func (a *App) OrderByID(id string) (models.Order, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, o := range a.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// SetOrderStatus applies an optimistic status change to both mirrors. The
// next authoritative snapshot overwrites it either way.
func (a *App) SetOrderStatus(id, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.orders {
		if a.orders[i].ID == id {
			a.orders[i].Status = status
		}
	}
	for i := range a.userOrders {
		if a.userOrders[i].ID == id {
			a.userOrders[i].Status = status
		}
	}
}

// ReplaceUserOrders applies a full snapshot to the customer mirror and
// returns the previous snapshot for transition diffing.
func (a *App) ReplaceUserOrders(orders []models.Order) []models.Order {
	a.mu.Lock()
	prev := a.userOrders
	a.userOrders = orders
	a.mu.Unlock()
	util.SyncPushesTotal.WithLabelValues("userOrders").Inc()
	return prev
}

// UserOrders returns the customer order mirror.
func (a *App) UserOrders() []models.Order {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Order, len(a.userOrders))
	copy(out, a.userOrders)
	return out
}

// ReplaceProducts applies a full catalog snapshot.
func (a *App) ReplaceProducts(products []models.Product) {
	a.mu.Lock()
	a.products = products
	a.mu.Unlock()
	util.SyncPushesTotal.WithLabelValues("products").Inc()
}

// Products returns the catalog mirror.
func (a *App) Products() []models.Product {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Product, len(a.products))
	copy(out, a.products)
	return out
}

// ProductByID looks up a product in the catalog mirror.
func (a *App) ProductByID(id string) (models.Product, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// ReplaceZones applies a full delivery-zone snapshot.
func (a *App) ReplaceZones(zones []models.DeliveryZone) {
	a.mu.Lock()
	a.zones = zones
	a.mu.Unlock()
	util.SyncPushesTotal.WithLabelValues("zones").Inc()
}

// Zones returns all delivery zones.
func (a *App) Zones() []models.DeliveryZone {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.DeliveryZone, len(a.zones))
	copy(out, a.zones)
	return out
}

// ActiveZones returns the zones selectable at checkout.
func (a *App) ActiveZones() []models.DeliveryZone {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.DeliveryZone
	for _, z := range a.zones {
		if z.Active {
			out = append(out, z)
		}
	}
	return out
}

// ReplaceSettings applies the settings snapshot.
func (a *App) ReplaceSettings(s models.Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
	util.SyncPushesTotal.WithLabelValues("settings").Inc()
}

// ApplySettings applies a partial settings change optimistically.
func (a *App) ApplySettings(upd models.SettingsUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if upd.StoreName != nil {
		a.settings.StoreName = *upd.StoreName
	}
	if upd.IsOpen != nil {
		a.settings.IsOpen = *upd.IsOpen
	}
	if upd.WhatsApp != nil {
		a.settings.WhatsApp = *upd.WhatsApp
	}
	if upd.Address != nil {
		a.settings.Address = *upd.Address
	}
	if upd.WeekdayHours != nil {
		a.settings.WeekdayHours = *upd.WeekdayHours
	}
	if upd.WeekendHours != nil {
		a.settings.WeekendHours = *upd.WeekendHours
	}
	if upd.PaymentMethods != nil {
		a.settings.PaymentMethods = upd.PaymentMethods
	}
}

// Settings returns the current settings.
func (a *App) Settings() models.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SetIdentity records the signed-in user; nil clears it.
func (a *App) SetIdentity(uid *string, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = uid
	a.userEmail = email
	if uid == nil {
		a.userProfile = nil
	}
}

// Identity returns the signed-in user id (nil for guests) and email.
func (a *App) Identity() (*string, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID, a.userEmail
}

// SetUserProfile records the loaded profile for the signed-in user.
func (a *App) SetUserProfile(p *models.UserProfile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userProfile = p
}

// UserProfile returns the signed-in user's profile, if loaded.
func (a *App) UserProfile() *models.UserProfile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userProfile
}

// SetAnalytics stores a freshly computed snapshot.
func (a *App) SetAnalytics(s analytics.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analytics = s
}

// Analytics returns the latest analytics snapshot.
func (a *App) Analytics() analytics.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.analytics
}
