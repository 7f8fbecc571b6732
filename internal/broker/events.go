package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/models"
)

// Publisher emits order lifecycle events. A nil *EventPublisher is a valid
// no-op publisher, so the broker stays optional in local deployments.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order models.Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error
}

type EventPublisher struct {
	producer *Producer
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (e *EventPublisher) PublishOrderPlaced(ctx context.Context, order models.Order) error {
	if e == nil {
		return nil
	}
	event := models.OrderPlacedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderPlaced),
		Order:     order,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}
	if err := e.producer.publish(ctx, order.ID, payload); err != nil {
		return fmt.Errorf("publish order placed event: %w", err)
	}
	e.producer.logger.Info("event published",
		zap.String("type", models.EventTypeOrderPlaced),
		zap.String("order_id", order.ID))
	return nil
}

func (e *EventPublisher) PublishOrderStatusChanged(ctx context.Context, orderID, from, to string) error {
	if e == nil {
		return nil
	}
	event := models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status changed event: %w", err)
	}
	if err := e.producer.publish(ctx, orderID, payload); err != nil {
		return fmt.Errorf("publish status changed event: %w", err)
	}
	e.producer.logger.Info("event published",
		zap.String("type", models.EventTypeOrderStatusChanged),
		zap.String("order_id", orderID),
		zap.String("to_status", to))
	return nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
