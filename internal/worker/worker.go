package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/broker"
	"storefront/internal/handoff"
	"storefront/internal/models"
	"storefront/internal/util"
)

// AlertWorker consumes order lifecycle events and prepares operator alerts.
// A placed order becomes a ready-to-send WhatsApp message for the vendor's
// phone; the worker renders and records it, it never sends anything itself.
type AlertWorker struct {
	consumer    *broker.Consumer
	storeName   string
	phoneHandle string
	logger      *zap.Logger
}

func NewAlertWorker(consumer *broker.Consumer, storeName, phoneHandle string) *AlertWorker {
	return &AlertWorker{
		consumer:    consumer,
		storeName:   storeName,
		phoneHandle: phoneHandle,
		logger:      util.Named("worker"),
	}
}

// Start consumes events until the context is cancelled.
func (w *AlertWorker) Start(ctx context.Context) error {
	w.logger.Info("starting alert worker")
	return w.consumer.Run(ctx, w.handle)
}

// Stop closes the consumer.
func (w *AlertWorker) Stop() error {
	w.logger.Info("stopping alert worker")
	return w.consumer.Close()
}

func (w *AlertWorker) handle(_ context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("decode event envelope: %w", err)
	}

	switch base.EventType {
	case models.EventTypeOrderPlaced:
		var event models.OrderPlacedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("decode order placed event: %w", err)
		}
		return w.handleOrderPlaced(event)

	case models.EventTypeOrderStatusChanged:
		var event models.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("decode status changed event: %w", err)
		}
		w.logger.Info("order status changed",
			zap.String("order_id", event.OrderID),
			zap.String("from", event.FromStatus),
			zap.String("to", event.ToStatus))
		return nil
	}

	w.logger.Debug("ignoring event", zap.String("type", base.EventType))
	return nil
}

func (w *AlertWorker) handleOrderPlaced(event models.OrderPlacedEvent) error {
	message := handoff.OrderMessage(event.Order, event.Order.CustomerName, w.storeName)
	link := handoff.WaLink(w.phoneHandle, message)

	w.logger.Info("new order alert ready",
		zap.String("order_id", event.Order.ID),
		zap.String("mode", event.Order.Mode),
		zap.Int64("total", event.Order.Total),
		zap.String("whatsapp_link", link))
	return nil
}
