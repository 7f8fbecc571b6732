package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// successor maps each status to the only forward transition it allows.
var successor = map[string]string{
	models.OrderStatusPending:   models.OrderStatusPreparing,
	models.OrderStatusPreparing: models.OrderStatusDelivery,
	models.OrderStatusDelivery:  models.OrderStatusDone,
}

// transitionMessages are the operator toasts for forward transitions.
var transitionMessages = map[string]string{
	models.OrderStatusPreparing: "Pedido aceito! Enviando para cozinha.",
	models.OrderStatusDelivery:  "Pedido saiu para entrega!",
	models.OrderStatusDone:      "Pedido finalizado com sucesso!",
}

// CanTransition reports whether from -> to is a legal status change.
// Cancellation is reachable from any non-terminal status; everything else
// must follow the pending -> preparing -> delivery -> done chain.
func CanTransition(from, to string) bool {
	if from == models.OrderStatusDone || from == models.OrderStatusCancelled {
		return false
	}
	if to == models.OrderStatusCancelled {
		return true
	}
	return successor[from] == to
}

// Advance moves an order to the next status. The local mirrors are updated
// optimistically before the store write; a store failure is reported but not
// rolled back, since the next authoritative snapshot settles it either way.
func (s *OrderService) Advance(ctx context.Context, id, next string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Advance")
	defer span.End()

	order, ok := s.app.OrderByID(id)
	if !ok {
		return ErrOrderNotFound
	}
	if !CanTransition(order.Status, next) {
		util.TransitionsRejectedTotal.Inc()
		s.logger.Warn("transition rejected",
			zap.String("order_id", id),
			zap.String("from", order.Status),
			zap.String("to", next))
		return &TransitionError{OrderID: id, From: order.Status, To: next}
	}

	s.app.SetOrderStatus(id, next)

	start := time.Now()
	err := s.store.UpdateOrderStatus(ctx, id, models.OrderStatusUpdate{Status: next})
	util.StoreWriteLatency.WithLabelValues(store.CollectionOrders).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("status write failed, keeping optimistic state",
			zap.String("order_id", id),
			zap.String("to", next),
			zap.Error(err))
		return err
	}

	util.StatusTransitionsTotal.WithLabelValues(next).Inc()
	message, ok := transitionMessages[next]
	if !ok {
		message = "Status atualizado."
	}
	s.app.Toasts().Success("Pedido", message)

	if s.publisher != nil {
		go func(from string) {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if perr := s.publisher.PublishOrderStatusChanged(pubCtx, id, from, next); perr != nil {
				s.logger.Warn("status changed event not published", zap.Error(perr))
			}
		}(order.Status)
	}
	return nil
}

// Cancel moves an order to cancelled, subject to the same guard as Advance.
func (s *OrderService) Cancel(ctx context.Context, id string) error {
	return s.Advance(ctx, id, models.OrderStatusCancelled)
}
