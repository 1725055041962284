package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingEvent is the lifecycle message published on every booking
// transition and consumed by the notifications worker.
type BookingEvent struct {
	Type        string     `json:"type"`
	BookingID   string     `json:"booking_id"`
	BookingType string     `json:"booking_type"`
	Status      string     `json:"status"`
	TotalPaise  int64      `json:"total_paise"`
	RefundPaise int64      `json:"refund_paise,omitempty"`
	Email       string     `json:"email"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
