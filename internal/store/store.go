package store

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/models"
)

// Collections
const (
	CollectionOrders   = "orders"
	CollectionProducts = "products"
	CollectionZones    = "deliveryZones"
	CollectionSettings = "settings"
	CollectionUsers    = "users"
)

// PersistenceError wraps a failed read or write against the document store.
// It is never fatal: callers surface a notification and stay retryable.
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op, collection string, err error) error {
	return &PersistenceError{Op: op, Collection: collection, Err: err}
}

// Store is the persistence collaborator: point writes plus query-and-subscribe.
// Every subscription pushes the full current result set on each change and
// keeps delivering until disposed.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) (string, error)
	UpdateOrderStatus(ctx context.Context, id string, upd models.OrderStatusUpdate) error
	Orders(ctx context.Context) ([]models.Order, error)
	SubscribeOrders(ctx context.Context) (*Feed[[]models.Order], error)
	SubscribeUserOrders(ctx context.Context, uid string) (*Feed[[]models.Order], error)

	CreateProduct(ctx context.Context, p *models.Product) (string, error)
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error
	DeleteProduct(ctx context.Context, id string) error
	SubscribeProducts(ctx context.Context) (*Feed[[]models.Product], error)

	CreateZone(ctx context.Context, z *models.DeliveryZone) (string, error)
	UpdateZone(ctx context.Context, id string, upd models.ZoneUpdate) error
	DeleteZone(ctx context.Context, id string) error
	SubscribeZones(ctx context.Context) (*Feed[[]models.DeliveryZone], error)

	Settings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, upd models.SettingsUpdate) error
	SubscribeSettings(ctx context.Context) (*Feed[models.Settings], error)

	CreateUserProfile(ctx context.Context, p *models.UserProfile) (string, error)
	UserProfile(ctx context.Context, uid string) (*models.UserProfile, error)

	Close() error
}

// Feed delivers full snapshots of one query until disposed. A snapshot always
// replaces whatever the consumer held before; when the consumer lags, the
// pending snapshot is superseded by the newest one rather than queued.
type Feed[T any] struct {
	ch   chan T
	done chan struct{}
	stop func()
	once sync.Once
}

func newFeed[T any](stop func()) *Feed[T] {
	return &Feed[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
		stop: stop,
	}
}

// Snapshots returns the channel of full result-set snapshots.
func (f *Feed[T]) Snapshots() <-chan T { return f.ch }

// Done is closed when the feed has been disposed.
func (f *Feed[T]) Done() <-chan struct{} { return f.done }

// Dispose stops delivery. Safe to call more than once.
func (f *Feed[T]) Dispose() {
	f.once.Do(func() {
		if f.stop != nil {
			f.stop()
		}
		close(f.done)
	})
}

// push delivers a snapshot, superseding an undelivered one. Pushes after
// Dispose are dropped.
func (f *Feed[T]) push(snap T) {
	for {
		select {
		case <-f.done:
			return
		case f.ch <- snap:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}
