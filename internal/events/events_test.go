// internal/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/medconnect-backend/internal/models"
)

func TestNewOrderEvent(t *testing.T) {
	order := &models.Order{
		BuyerID:            uuid.New(),
		SellerID:           uuid.New(),
		Status:             models.OrderStatusCancelled,
		TotalAmount:        decimal.RequireFromString("181"),
		CancellationReason: "changed my mind",
	}
	order.ID = uuid.New()

	event := NewOrderEvent(TopicOrderCancelled, order, models.OrderStatusPending)
	assert.Equal(t, TopicOrderCancelled, event.Topic)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, "181.00", event.Total)
	assert.Equal(t, models.OrderStatusPending, event.PrevStatus)
	assert.False(t, event.OccurredAt.IsZero())

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "Topic")
	assert.Equal(t, "cancelled", decoded["status"])
	assert.Equal(t, "changed my mind", decoded["reason"])
}

func TestLogPublisher(t *testing.T) {
	var p Publisher = NewLogPublisher()
	assert.NoError(t, p.Publish(context.Background(), OrderEvent{Topic: TopicOrderPlaced, OrderID: uuid.New()}))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisherDoesNotBlockRequests(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"})
	assert.True(t, p.writer.Async)
	assert.Equal(t, writeTimeout, p.writer.WriteTimeout)
	assert.NotNil(t, p.writer.Completion)
}
