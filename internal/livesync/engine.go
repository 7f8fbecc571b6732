// Package livesync keeps the process-wide state mirrored against the
// document store. Every subscription delivers full snapshots; a snapshot
// always replaces the mirror wholesale, optimistic edits included.
package livesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/analytics"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"
)

// Engine wires the store subscriptions and the identity provider into the
// application state.
type Engine struct {
	app    *state.App
	store  store.Store
	logger *zap.Logger

	mu          sync.Mutex
	userFeed    *store.Feed[[]models.Order]
	authDispose func()
	wg          sync.WaitGroup
}

func NewEngine(app *state.App, st store.Store) *Engine {
	return &Engine{app: app, store: st, logger: util.Named("livesync")}
}

// Start opens the shared-collection subscriptions and, when a provider is
// given, follows sign-in and sign-out to bind the per-user order feed.
func (e *Engine) Start(ctx context.Context, provider auth.Provider) error {
	orders, err := e.store.SubscribeOrders(ctx)
	if err != nil {
		return fmt.Errorf("subscribe orders: %w", err)
	}
	products, err := e.store.SubscribeProducts(ctx)
	if err != nil {
		orders.Dispose()
		return fmt.Errorf("subscribe products: %w", err)
	}
	zones, err := e.store.SubscribeZones(ctx)
	if err != nil {
		orders.Dispose()
		products.Dispose()
		return fmt.Errorf("subscribe zones: %w", err)
	}
	settings, err := e.store.SubscribeSettings(ctx)
	if err != nil {
		orders.Dispose()
		products.Dispose()
		zones.Dispose()
		return fmt.Errorf("subscribe settings: %w", err)
	}

	consume(e, ctx, orders, e.applyOrders)
	consume(e, ctx, products, e.app.ReplaceProducts)
	consume(e, ctx, zones, e.app.ReplaceZones)
	consume(e, ctx, settings, e.app.ReplaceSettings)

	if provider != nil {
		e.authDispose = provider.Subscribe(func(id *auth.Identity) {
			e.onIdentity(ctx, id)
		})
	}

	go func() {
		<-ctx.Done()
		orders.Dispose()
		products.Dispose()
		zones.Dispose()
		settings.Dispose()
		e.Unbind()
		e.mu.Lock()
		if e.authDispose != nil {
			e.authDispose()
			e.authDispose = nil
		}
		e.mu.Unlock()
	}()

	e.logger.Info("live sync started")
	return nil
}

// Wait blocks until every consumer goroutine has drained.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// consume drains a feed into the state mirror until the feed is disposed or
// the context ends.
func consume[T any](e *Engine, ctx context.Context, feed *store.Feed[T], apply func(T)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-feed.Done():
				return
			case snap := <-feed.Snapshots():
				apply(snap)
			}
		}
	}()
}

func (e *Engine) applyOrders(orders []models.Order) {
	e.app.ReplaceOrders(orders)
	e.app.SetAnalytics(analytics.Compute(orders, time.Now()))
}

func (e *Engine) onIdentity(ctx context.Context, id *auth.Identity) {
	if id == nil {
		e.app.SetIdentity(nil, "")
		e.Unbind()
		return
	}

	uid := id.UID
	e.app.SetIdentity(&uid, id.Email)
	if err := e.BindUser(ctx, uid); err != nil {
		e.logger.Error("user order feed not established", zap.String("uid", uid), zap.Error(err))
	}

	profile, err := e.store.UserProfile(ctx, uid)
	if err != nil {
		e.logger.Warn("profile lookup failed", zap.String("uid", uid), zap.Error(err))
		return
	}
	e.app.SetUserProfile(profile)
}

// BindUser subscribes the customer order mirror to one user, replacing any
// previous binding. At most one per-user feed is active at a time.
func (e *Engine) BindUser(ctx context.Context, uid string) error {
	feed, err := e.store.SubscribeUserOrders(ctx, uid)
	if err != nil {
		return fmt.Errorf("subscribe user orders: %w", err)
	}

	e.mu.Lock()
	if e.userFeed != nil {
		e.userFeed.Dispose()
	}
	e.userFeed = feed
	e.mu.Unlock()

	consume(e, ctx, feed, e.applyUserOrders)
	return nil
}

// Unbind disposes the customer order feed and empties the mirror.
func (e *Engine) Unbind() {
	e.mu.Lock()
	feed := e.userFeed
	e.userFeed = nil
	e.mu.Unlock()

	if feed != nil {
		feed.Dispose()
	}
	e.app.ReplaceUserOrders(nil)
}

func (e *Engine) applyUserOrders(orders []models.Order) {
	prev := e.app.ReplaceUserOrders(orders)
	e.notifyTransitions(prev, orders)
}

// notifyTransitions toasts the customer when an order they already held
// changed status. Orders appearing for the first time stay silent; the
// customer just placed them.
func (e *Engine) notifyTransitions(prev, next []models.Order) {
	if len(prev) == 0 {
		return
	}
	old := make(map[string]string, len(prev))
	for _, o := range prev {
		old[o.ID] = o.Status
	}

	for _, o := range next {
		before, existed := old[o.ID]
		if !existed || before == o.Status {
			continue
		}
		switch o.Status {
		case models.OrderStatusPreparing:
			e.app.Toasts().Success("✅ Pedido Confirmado!",
				fmt.Sprintf("Seu pedido #%s foi aceito e está sendo preparado.", shortID(o.ID)))
		case models.OrderStatusDelivery:
			e.app.Toasts().Info("🚚 Saiu para Entrega!",
				fmt.Sprintf("Seu pedido #%s está a caminho!", shortID(o.ID)))
		case models.OrderStatusDone:
			e.app.Toasts().Success("🎉 Pedido Concluído!",
				fmt.Sprintf("Seu pedido #%s foi entregue com sucesso!", shortID(o.ID)))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
