package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const topicPrefix = "commerce."

// KafkaPublisher пишет события в топик по агрегату: commerce.order, commerce.course, ...
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

// NewPublisher Kafka при непустом списке брокеров, иначе Nop
func NewPublisher(brokersCSV string) Publisher {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers)
}

func topicFor(eventType string) string {
	aggregate, _, _ := strings.Cut(eventType, ".")
	return topicPrefix + aggregate
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	msg := kafka.Message{
		Topic: topicFor(e.Type),
		Key:   []byte(e.AggregateID),
		Value: data,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
