package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventItemCreated = "item.created"
	EventItemUpdated = "item.updated"
	EventItemDeleted = "item.deleted"
)

type ItemEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ItemID     string    `json:"item_id"`
	Item       *ItemDto  `json:"item,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, ev ItemEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ItemEvent) error { return nil }

// KafkaPublisher writes item events as JSON, keyed by item id so all events
// for one item land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    10,
			BatchTimeout: 100 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Warn("kafka write failed", zap.Error(err), zap.Int("messages", len(messages)))
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ItemEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ItemID),
		Value: value,
		Time:  ev.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
