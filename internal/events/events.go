// Package events publishes chat activity to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const TypeMessageProcessed = "message.processed"

type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id"`
	MessageID      int64     `json:"message_id"`
	MessageType    string    `json:"message_type"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func MessageProcessed(userID, conversationID, messageID int64, messageType string) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           TypeMessageProcessed,
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      messageID,
		MessageType:    messageType,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type KafkaPublisher struct {
	w      *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher returns an async writer. Delivery failures are logged, never returned.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func (p *KafkaPublisher) completed(messages []kafka.Message, err error) {
	if err != nil {
		p.logger.Warn("failed to deliver events",
			zap.Int("count", len(messages)),
			zap.String("topic", p.w.Topic),
			zap.Error(err))
	}
}

// encode keys messages by conversation so one conversation stays on one partition.
func encode(ev Event) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.ConversationID, 10)),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}
