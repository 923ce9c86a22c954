package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

type recordingProducer struct {
	msgs []kafka.Message
	err  error
}

func (p *recordingProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

type recordingConn struct {
	subjects []string
	payloads [][]byte
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func sampleEvent() models.StateChangedEvent {
	return models.StateChangedEvent{
		TransactionID:  "tx-1",
		ReferenceID:    "ref-1",
		OrderID:        "o1",
		Status:         models.StatusSuccess,
		PreviousStatus: models.StatusPending,
		Source:         models.SourceCallback,
		Timestamp:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaPublisher(t *testing.T) {
	producer := &recordingProducer{}
	err := NewKafkaPublisher(producer).PublishStateChanged(context.Background(), sampleEvent())
	require.NoError(t, err)

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	require.Equal(t, "ref-1", string(msg.Key))
	require.Equal(t, "event_type", msg.Headers[0].Key)

	var decoded models.StateChangedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, models.StatusSuccess, decoded.Status)
	require.Equal(t, "o1", decoded.OrderID)
}

func TestNATSPublisher(t *testing.T) {
	conn := &recordingConn{}
	err := NewNATSPublisher(conn).PublishStateChanged(context.Background(), sampleEvent())
	require.NoError(t, err)
	require.Equal(t, []string{"payments.ref-1.status"}, conn.subjects)
}

func TestBroadcaster_SwallowsSinkErrors(t *testing.T) {
	failing := &recordingProducer{err: errors.New("broker down")}
	conn := &recordingConn{}

	b := NewBroadcaster().
		Add("kafka", NewKafkaPublisher(failing)).
		Add("nats", NewNATSPublisher(conn))

	require.NoError(t, b.PublishStateChanged(context.Background(), sampleEvent()))
	require.Len(t, conn.subjects, 1)
}
