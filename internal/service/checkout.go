package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/handoff"
	"storefront/internal/models"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"
)

const submissionKeyTTL = 10 * time.Minute

// SubmissionCache is the redis-backed surface the pipeline uses: one-shot
// idempotency keys plus cleanup of the persisted cart snapshot once an order
// lands. Implemented by redisclient.Client.
type SubmissionCache interface {
	ReserveSubmission(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseSubmission(ctx context.Context, key string) error
	ClearCart(ctx context.Context, sessionID string) error
}

// OrderService runs the submission pipeline and the order state machine
// against the process-wide application state.
type OrderService struct {
	app       *state.App
	store     store.Store
	redis     SubmissionCache
	publisher broker.Publisher
	logger    *zap.Logger
}

// NewOrderService creates the order service. redis and publisher may be nil;
// idempotency keys and lifecycle events are then skipped.
func NewOrderService(app *state.App, st store.Store, redis SubmissionCache, publisher broker.Publisher) *OrderService {
	return &OrderService{
		app:       app,
		store:     st,
		redis:     redis,
		publisher: publisher,
		logger:    util.Named("service"),
	}
}

// CheckoutRequest carries the customer's fulfillment choice for the current
// cart contents.
type CheckoutRequest struct {
	CustomerName   string `json:"customer_name"`
	Mode           string `json:"mode"`
	ZoneName       string `json:"zone_name"`
	Address        string `json:"address"`
	SessionID      string `json:"-"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CheckoutResult is the outcome of a successful submission: the created
// order plus the rendered WhatsApp handoff.
type CheckoutResult struct {
	Order           models.Order `json:"order"`
	WhatsAppMessage string       `json:"whatsapp_message"`
	WhatsAppLink    string       `json:"whatsapp_link"`
}

// Checkout validates the request, freezes the cart into an order, persists
// it and hands back the WhatsApp message. Validation failures reject before
// any store call; a store failure leaves the cart intact so the customer can
// retry.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	lines := s.app.Cart().Lines()
	if verr := validateCheckout(req, lines); verr != nil {
		util.OrdersRejectedTotal.WithLabelValues(verr.Reason).Inc()
		s.app.Toasts().Error("Erro", verr.Message)
		return nil, verr
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}
	if s.redis != nil {
		fresh, err := s.redis.ReserveSubmission(ctx, req.IdempotencyKey, submissionKeyTTL)
		if err != nil {
			s.logger.Warn("idempotency reservation unavailable", zap.Error(err))
		} else if !fresh {
			s.logger.Info("duplicate submission suppressed",
				zap.String("idempotency_key", req.IdempotencyKey))
			return nil, ErrDuplicateSubmission
		}
	}

	quote := cart.PriceOut(lines, req.Mode, req.ZoneName, s.app.Zones())
	uid, _ := s.app.Identity()
	order := buildOrder(req, lines, quote, uid)

	start := time.Now()
	id, err := s.store.CreateOrder(ctx, &order)
	util.StoreWriteLatency.WithLabelValues(store.CollectionOrders).Observe(time.Since(start).Seconds())
	if err != nil {
		if s.redis != nil {
			if rerr := s.redis.ReleaseSubmission(ctx, req.IdempotencyKey); rerr != nil {
				s.logger.Warn("failed to release submission key", zap.Error(rerr))
			}
		}
		util.OrdersRejectedTotal.WithLabelValues("store_error").Inc()
		s.app.Toasts().Error("Erro", "Falha ao criar pedido. Tente novamente.")
		s.logger.Error("order submission failed", zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.ID = id

	s.app.Cart().Clear()
	if s.redis != nil && req.SessionID != "" {
		if cerr := s.redis.ClearCart(ctx, req.SessionID); cerr != nil {
			s.logger.Warn("failed to clear persisted cart", zap.Error(cerr))
		}
	}

	util.OrdersSubmittedTotal.Inc()
	s.app.Toasts().Success("Sucesso", "Pedido confirmado! 🎉")
	s.logger.Info("order submitted",
		zap.String("order_id", order.ID),
		zap.String("mode", order.Mode),
		zap.Int64("total", order.Total))

	if s.publisher != nil {
		go func(o models.Order) {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if perr := s.publisher.PublishOrderPlaced(pubCtx, o); perr != nil {
				s.logger.Warn("order placed event not published", zap.Error(perr))
			}
		}(order)
	}

	settings := s.app.Settings()
	message := handoff.OrderMessage(order, req.CustomerName, settings.StoreName)
	return &CheckoutResult{
		Order:           order,
		WhatsAppMessage: message,
		WhatsAppLink:    handoff.WaLink(settings.WhatsApp, message),
	}, nil
}

func validateCheckout(req CheckoutRequest, lines []models.CartLine) *ValidationError {
	if len(lines) == 0 {
		return &ValidationError{Reason: ReasonEmptyCart, Message: "Seu carrinho está vazio."}
	}
	switch req.Mode {
	case models.ModeDelivery:
		if req.ZoneName == "" || req.Address == "" || req.CustomerName == "" {
			return &ValidationError{Reason: ReasonMissingFields, Message: "Preencha todos os campos obrigatórios."}
		}
	default:
		if req.CustomerName == "" {
			return &ValidationError{Reason: ReasonMissingName, Message: "Preencha seu nome."}
		}
	}
	return nil
}

// buildOrder freezes the cart lines into an order snapshot. Later catalog
// edits never touch a placed order.
func buildOrder(req CheckoutRequest, lines []models.CartLine, quote cart.Quote, uid *string) models.Order {
	items := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderLine{
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
			Note:     l.Note,
			Category: l.Category,
		})
	}

	address := models.PickupAddress
	zoneName := ""
	if req.Mode == models.ModeDelivery {
		address = fmt.Sprintf("%s - %s", req.Address, req.ZoneName)
		zoneName = req.ZoneName
	}

	now := time.Now().UTC()
	return models.Order{
		UserID:       uid,
		CustomerName: req.CustomerName,
		Mode:         req.Mode,
		Address:      address,
		ZoneName:     zoneName,
		Items:        items,
		Subtotal:     quote.Subtotal,
		DeliveryFee:  quote.DeliveryFee,
		Total:        quote.Total,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
