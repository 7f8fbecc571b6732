package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local development.
// Subscriptions behave like the real drivers: every mutation pushes the full
// current result set to each live feed.
type Memory struct {
	mu       sync.Mutex
	orders   []models.Order
	products []models.Product
	zones    []models.DeliveryZone
	settings models.Settings
	users    []models.UserProfile

	orderFeeds    map[*Feed[[]models.Order]]string // value is the uid filter, "" for all
	productFeeds  map[*Feed[[]models.Product]]struct{}
	zoneFeeds     map[*Feed[[]models.DeliveryZone]]struct{}
	settingsFeeds map[*Feed[models.Settings]]struct{}

	createOrderCalls int
	failNext         error
}

// NewMemory creates an empty in-memory store with default settings.
func NewMemory() *Memory {
	return &Memory{
		settings:      models.DefaultSettings(),
		orderFeeds:    make(map[*Feed[[]models.Order]]string),
		productFeeds:  make(map[*Feed[[]models.Product]]struct{}),
		zoneFeeds:     make(map[*Feed[[]models.DeliveryZone]]struct{}),
		settingsFeeds: make(map[*Feed[models.Settings]]struct{}),
	}
}

// FailNextWrite makes the next write operation fail with err. Test hook.
func (m *Memory) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// CreateOrderCalls reports how many times CreateOrder was invoked.
func (m *Memory) CreateOrderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createOrderCalls
}

func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *Memory) CreateOrder(_ context.Context, o *models.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createOrderCalls++
	if err := m.takeFailure(); err != nil {
		return "", persistErr("create", CollectionOrders, err)
	}

	stored := *o
	stored.ID = uuid.New().String()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.Items = append([]models.OrderLine(nil), o.Items...)
	m.orders = append(m.orders, stored)

	m.notifyOrdersLocked()
	return stored.ID, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id string, upd models.OrderStatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("update", CollectionOrders, err)
	}

	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = upd.Status
			m.orders[i].UpdatedAt = time.Now()
			m.notifyOrdersLocked()
			return nil
		}
	}
	return persistErr("update", CollectionOrders, errors.New("order not found"))
}

func (m *Memory) Orders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderSnapshotLocked(""), nil
}

func (m *Memory) SubscribeOrders(_ context.Context) (*Feed[[]models.Order], error) {
	return m.subscribeOrders("")
}

func (m *Memory) SubscribeUserOrders(_ context.Context, uid string) (*Feed[[]models.Order], error) {
	return m.subscribeOrders(uid)
}

func (m *Memory) subscribeOrders(uid string) (*Feed[[]models.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var f *Feed[[]models.Order]
	f = newFeed[[]models.Order](func() {
		m.mu.Lock()
		delete(m.orderFeeds, f)
		m.mu.Unlock()
	})
	m.orderFeeds[f] = uid
	f.push(m.orderSnapshotLocked(uid))
	return f, nil
}

// orderSnapshotLocked copies orders matching the uid filter, newest first.
func (m *Memory) orderSnapshotLocked(uid string) []models.Order {
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if uid != "" && (o.UserID == nil || *o.UserID != uid) {
			continue
		}
		o.Items = append([]models.OrderLine(nil), o.Items...)
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) notifyOrdersLocked() {
	for f, uid := range m.orderFeeds {
		f.push(m.orderSnapshotLocked(uid))
	}
}

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return "", persistErr("create", CollectionProducts, err)
	}

	stored := *p
	stored.ID = uuid.New().String()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.products = append(m.products, stored)
	m.notifyProductsLocked()
	return stored.ID, nil
}

func (m *Memory) UpdateProduct(_ context.Context, id string, upd models.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("update", CollectionProducts, err)
	}

	for i := range m.products {
		if m.products[i].ID != id {
			continue
		}
		p := &m.products[i]
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Price != nil {
			p.Price = *upd.Price
		}
		if upd.Category != nil {
			p.Category = *upd.Category
		}
		if upd.Image != nil {
			p.Image = *upd.Image
		}
		if upd.IsNew != nil {
			p.IsNew = *upd.IsNew
		}
		if upd.IsPaused != nil {
			p.IsPaused = *upd.IsPaused
		}
		m.notifyProductsLocked()
		return nil
	}
	return persistErr("update", CollectionProducts, errors.New("product not found"))
}

func (m *Memory) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("delete", CollectionProducts, err)
	}

	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			m.notifyProductsLocked()
			return nil
		}
	}
	return nil
}

func (m *Memory) SubscribeProducts(_ context.Context) (*Feed[[]models.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var f *Feed[[]models.Product]
	f = newFeed[[]models.Product](func() {
		m.mu.Lock()
		delete(m.productFeeds, f)
		m.mu.Unlock()
	})
	m.productFeeds[f] = struct{}{}
	f.push(append([]models.Product(nil), m.products...))
	return f, nil
}

func (m *Memory) notifyProductsLocked() {
	for f := range m.productFeeds {
		f.push(append([]models.Product(nil), m.products...))
	}
}

func (m *Memory) CreateZone(_ context.Context, z *models.DeliveryZone) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return "", persistErr("create", CollectionZones, err)
	}

	stored := *z
	stored.ID = uuid.New().String()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.zones = append(m.zones, stored)
	m.notifyZonesLocked()
	return stored.ID, nil
}

func (m *Memory) UpdateZone(_ context.Context, id string, upd models.ZoneUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("update", CollectionZones, err)
	}

	for i := range m.zones {
		if m.zones[i].ID != id {
			continue
		}
		z := &m.zones[i]
		if upd.Name != nil {
			z.Name = *upd.Name
		}
		if upd.Fee != nil {
			z.Fee = *upd.Fee
		}
		if upd.TimeEst != nil {
			z.TimeEst = *upd.TimeEst
		}
		if upd.Active != nil {
			z.Active = *upd.Active
		}
		m.notifyZonesLocked()
		return nil
	}
	return persistErr("update", CollectionZones, errors.New("zone not found"))
}

func (m *Memory) DeleteZone(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("delete", CollectionZones, err)
	}

	for i := range m.zones {
		if m.zones[i].ID == id {
			m.zones = append(m.zones[:i], m.zones[i+1:]...)
			m.notifyZonesLocked()
			return nil
		}
	}
	return nil
}

func (m *Memory) SubscribeZones(_ context.Context) (*Feed[[]models.DeliveryZone], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var f *Feed[[]models.DeliveryZone]
	f = newFeed[[]models.DeliveryZone](func() {
		m.mu.Lock()
		delete(m.zoneFeeds, f)
		m.mu.Unlock()
	})
	m.zoneFeeds[f] = struct{}{}
	f.push(append([]models.DeliveryZone(nil), m.zones...))
	return f, nil
}

func (m *Memory) notifyZonesLocked() {
	for f := range m.zoneFeeds {
		f.push(append([]models.DeliveryZone(nil), m.zones...))
	}
}

func (m *Memory) Settings(_ context.Context) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	return &s, nil
}

func (m *Memory) UpdateSettings(_ context.Context, upd models.SettingsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return persistErr("update", CollectionSettings, err)
	}

	s := &m.settings
	if upd.StoreName != nil {
		s.StoreName = *upd.StoreName
	}
	if upd.IsOpen != nil {
		s.IsOpen = *upd.IsOpen
	}
	if upd.WhatsApp != nil {
		s.WhatsApp = *upd.WhatsApp
	}
	if upd.Address != nil {
		s.Address = *upd.Address
	}
	if upd.WeekdayHours != nil {
		s.WeekdayHours = *upd.WeekdayHours
	}
	if upd.WeekendHours != nil {
		s.WeekendHours = *upd.WeekendHours
	}
	if upd.PaymentMethods != nil {
		s.PaymentMethods = upd.PaymentMethods
	}

	for f := range m.settingsFeeds {
		f.push(m.settings)
	}
	return nil
}

func (m *Memory) SubscribeSettings(_ context.Context) (*Feed[models.Settings], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var f *Feed[models.Settings]
	f = newFeed[models.Settings](func() {
		m.mu.Lock()
		delete(m.settingsFeeds, f)
		m.mu.Unlock()
	})
	m.settingsFeeds[f] = struct{}{}
	f.push(m.settings)
	return f, nil
}

func (m *Memory) CreateUserProfile(_ context.Context, p *models.UserProfile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return "", persistErr("create", CollectionUsers, err)
	}

	stored := *p
	stored.ID = uuid.New().String()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.users = append(m.users, stored)
	return stored.ID, nil
}

func (m *Memory) UserProfile(_ context.Context, uid string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.UID == uid {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) Close() error { return nil }
