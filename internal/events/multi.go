package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type sink struct {
	name      string
	publisher interfaces.EventPublisher
}

// Broadcaster publishes to every registered sink. Sink errors are logged and
// counted; publishing never fails the caller.
type Broadcaster struct {
	sinks []sink
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) Add(name string, p interfaces.EventPublisher) *Broadcaster {
	b.sinks = append(b.sinks, sink{name: name, publisher: p})
	return b
}

func (b *Broadcaster) PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error {
	for _, s := range b.sinks {
		if err := s.publisher.PublishStateChanged(ctx, event); err != nil {
			telemetry.EventPublishFailuresTotal.WithLabelValues(s.name).Inc()
			telemetry.Logger.Error("Failed to publish state change",
				zap.String("sink", s.name),
				zap.String("reference_id", event.ReferenceID),
				zap.String("status", string(event.Status)),
				zap.Error(err),
			)
		}
	}
	return nil
}
