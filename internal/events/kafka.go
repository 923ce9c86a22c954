package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher appends state changes to the payment events topic, keyed
// by reference id so one transaction's events stay ordered.
type KafkaPublisher struct {
	producer Producer
}

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal state event: %w", err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte("payment.state.changed")}}
	if tp := telemetry.InjectTraceparent(ctx); tp != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	return p.producer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.ReferenceID),
		Value:   payload,
		Headers: headers,
	})
}
