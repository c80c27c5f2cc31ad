// internal/events/events.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/models"
)

const (
	TopicOrderPlaced        = "order-placed"
	TopicOrderStatusChanged = "order-status-changed"
	TopicOrderCancelled     = "order-cancelled"
)

// OrderEvent is published after an order change has been committed.
type OrderEvent struct {
	Topic      string             `json:"-"`
	OrderID    uuid.UUID          `json:"order_id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	SellerID   uuid.UUID          `json:"seller_id"`
	Status     models.OrderStatus `json:"status"`
	PrevStatus models.OrderStatus `json:"prev_status,omitempty"`
	Total      string             `json:"total_amount"`
	Reason     string             `json:"reason,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewOrderEvent(topic string, order *models.Order, prev models.OrderStatus) OrderEvent {
	return OrderEvent{
		Topic:      topic,
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		Status:     order.Status,
		PrevStatus: prev,
		Total:      order.TotalAmount.StringFixed(2),
		Reason:     order.CancellationReason,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, event OrderEvent) error {
	logrus.WithFields(logrus.Fields{
		"topic":    event.Topic,
		"order_id": event.OrderID,
		"status":   event.Status,
	}).Info("Order event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
