// Package events publishes product lifecycle events (created, updated,
// deleted) so other services can follow catalog changes. Publishing is
// best-effort: the catalog never fails a request because an event could not
// be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	ProductCreated = "product_created"
	ProductUpdated = "product_updated"
	ProductDeleted = "product_deleted"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "product_events"

// ProductEvent is the payload written for every product mutation.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"product_id"`
	PreviousID string    `json:"previous_id,omitempty"` // set when an update renamed the id
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers product events.
type Publisher interface {
	Publish(ctx context.Context, ev ProductEvent) error
	Close() error
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, ProductEvent) error { return nil }
func (Noop) Close() error                                { return nil }

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to a single topic, keyed by product
// id so all events for one product land on the same partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher returns an asynchronous publisher for topic. Delivery
// failures are reported to the log by the writer's completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn().Err(err).Int("messages", len(msgs)).Str("topic", topic).Msg("kafka delivery failed")
			}
		},
	}
	return &KafkaPublisher{w: w}
}

// Publish encodes ev and hands it to the writer.
func (p *KafkaPublisher) Publish(ctx context.Context, ev ProductEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.ProductID),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error { return p.w.Close() }
