package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// Producer publishes ledger mutation events.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the trades topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishTradeCreated announces a new ledger entry.
func (p *Producer) PublishTradeCreated(ctx context.Context, t *models.Trade) error {
	return p.publish(ctx, t.ID.String(), models.TradeEvent{
		EventType: models.EventTradeCreated,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Trade:     t,
	})
}

// PublishTradeUpdated announces a corrected ledger entry.
func (p *Producer) PublishTradeUpdated(ctx context.Context, t *models.Trade) error {
	return p.publish(ctx, t.ID.String(), models.TradeEvent{
		EventType: models.EventTradeUpdated,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Trade:     t,
	})
}

// PublishTradeDeleted announces a removed ledger entry.
func (p *Producer) PublishTradeDeleted(ctx context.Context, tradeID string) error {
	return p.publish(ctx, tradeID, models.TradeEvent{
		EventType: models.EventTradeDeleted,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TradeID:   tradeID,
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.TradeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trade event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType, err)
	}
	return nil
}

// Close closes the Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
