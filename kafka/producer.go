package kafka

import (
	"context"
	"encoding/json"

	"listing-service/models"

	"github.com/segmentio/kafka-go"
)

// Producer publishes listing batch events to Kafka.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// PublishBatchGenerated emits a listing_batch_generated event keyed by
// batch id.
func (p *Producer) PublishBatchGenerated(ctx context.Context, event models.BatchGeneratedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BatchID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
