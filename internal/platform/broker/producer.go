// Package broker publishes domain events to Kafka.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope wraps every published payload.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Producer writes JSON events to a single topic.
type Producer struct {
	l     *slog.Logger
	w     *kafka.Writer
	topic string
}

// NewProducer builds an asynchronous producer. It returns nil when no brokers
// are configured; a nil Producer accepts and drops every event.
func NewProducer(l *slog.Logger, brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if l == nil {
		l = slog.Default()
	}
	l = l.WithGroup("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Logger:                 kafka.LoggerFunc(func(msg string, args ...any) { l.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:            kafka.LoggerFunc(func(msg string, args ...any) { l.Error(fmt.Sprintf(msg, args...)) }),
		AllowAutoTopicCreation: true,
	}

	return &Producer{l: l, w: w, topic: topic}
}

// Publish enqueues payload keyed by key.
func (p *Producer) Publish(ctx context.Context, key string, payload any) error {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(Envelope{Type: key, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("broker: marshal event: %w", err)
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Topic: p.topic,
	})
	if err != nil {
		return fmt.Errorf("broker: write message: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	if err := p.w.Close(); err != nil {
		p.l.Error("close kafka writer", slog.Any("error", err))
	}
}
