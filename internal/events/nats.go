package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher pushes live status updates to storefront subscribers on
// payments.<reference_id>.status.
type NATSPublisher struct {
	conn Conn
}

func NewNATSPublisher(conn Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func Subject(referenceID string) string {
	return fmt.Sprintf("payments.%s.status", referenceID)
}

func (p *NATSPublisher) PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal state event: %w", err)
	}
	return p.conn.Publish(Subject(event.ReferenceID), payload)
}
