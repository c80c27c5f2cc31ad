// internal/events/kafka.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

const writeTimeout = 5 * time.Second

// NewKafkaPublisher returns an async writer: Publish only enqueues, delivery
// errors are logged from the completion callback and Close flushes.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           writeTimeout,
			Async:                  true,
			Completion:             logDeliveryFailure,
			AllowAutoTopicCreation: true,
		},
	}
}

func logDeliveryFailure(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		logrus.WithError(err).WithFields(logrus.Fields{
			"topic":    m.Topic,
			"order_id": string(m.Key),
		}).Error("Failed to deliver order event")
	}
}

// Publish keys messages by order id so every event of one order lands on
// the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Topic, err)
	}

	message := kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.OrderID.String()),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
