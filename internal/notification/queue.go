package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

var ErrQueueFull = errors.New("email queue is full")

// Handler delivers one email task. *Dispatcher implements it.
type Handler interface {
	SendOrderEmail(ctx context.Context, orderID string, emailType models.EmailType) (*Result, error)
}

// RetryPolicy retries a task with backoff base, 2*base, 4*base, ...
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// deliver runs the handler until it stops returning errors or the attempts
// run out. A not-sent Result is final and never retried.
func (p RetryPolicy) deliver(ctx context.Context, h Handler, task models.EmailTask) bool {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := p.BackoffBase * time.Duration(1<<uint(attempt-2))
			telemetry.Logger.Info("Retrying email task",
				zap.String("order_id", task.OrderID),
				zap.String("type", string(task.Type)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}
		}

		res, err := h.SendOrderEmail(ctx, task.OrderID, task.Type)
		if err == nil {
			if !res.Sent {
				telemetry.Logger.Info("Email not sent",
					zap.String("order_id", task.OrderID),
					zap.String("reason", res.Reason),
				)
			}
			return true
		}
		lastErr = err
	}

	telemetry.Logger.Error("Email task exhausted retries",
		zap.String("order_id", task.OrderID),
		zap.String("type", string(task.Type)),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return false
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaTaskQueue writes email tasks to the notification topic for Worker.
type KafkaTaskQueue struct {
	producer Producer
}

func NewKafkaTaskQueue(producer Producer) *KafkaTaskQueue {
	return &KafkaTaskQueue{producer: producer}
}

func (q *KafkaTaskQueue) EnqueueEmail(ctx context.Context, task models.EmailTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal email task: %w", err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte("notification.email.requested")}}
	if tp := telemetry.InjectTraceparent(ctx); tp != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	return q.producer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(task.OrderID),
		Value:   payload,
		Headers: headers,
	})
}

// AsyncQueue is the in-process queue used when no broker is configured.
// Tasks still pending at shutdown are lost.
type AsyncQueue struct {
	tasks   chan models.EmailTask
	handler Handler
	retry   RetryPolicy
}

func NewAsyncQueue(handler Handler, retry RetryPolicy, size int) *AsyncQueue {
	return &AsyncQueue{tasks: make(chan models.EmailTask, size), handler: handler, retry: retry}
}

func (q *AsyncQueue) EnqueueEmail(ctx context.Context, task models.EmailTask) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run delivers tasks until ctx is cancelled.
func (q *AsyncQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.retry.deliver(ctx, q.handler, task)
		}
	}
}
