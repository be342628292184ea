// Package events publishes domain events (message sent, item liked) for
// downstream consumers such as notification workers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeMessageSent = "message.sent"
	TypeItemLiked   = "item.liked"
	TypeItemCreated = "item.created"
)

type Event struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent encodes payload and stamps the event with the current time.
func NewEvent(eventType, key string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: raw}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// New returns a Kafka publisher, or a no-op publisher when no brokers are
// configured.
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic, logger)
}

// DefaultPublishTimeout bounds how long Publish may hold up its caller.
const DefaultPublishTimeout = 2 * time.Second

// KafkaPublisher writes asynchronously. Delivery failures are logged from the
// writer's completion callback; Publish only reports failures to enqueue.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: w, timeout: DefaultPublishTimeout}
}

// WithTimeout replaces the publish timeout.
func (p *KafkaPublisher) WithTimeout(d time.Duration) *KafkaPublisher {
	p.timeout = d
	return p
}

// Publish keys the record by ev.Key so events for the same entity stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// The write outlives the caller's context but is bounded by p.timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
