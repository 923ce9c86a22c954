package notification

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

// Reader is the subset of *kafka.Reader the worker needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Worker consumes email tasks with at-least-once semantics: the offset is
// committed once the task is delivered or given up on.
type Worker struct {
	reader  Reader
	handler Handler
	retry   RetryPolicy
}

func NewWorker(reader Reader, handler Handler, retry RetryPolicy) *Worker {
	return &Worker{reader: reader, handler: handler, retry: retry}
}

func (w *Worker) Start(ctx context.Context) error {
	telemetry.Logger.Info("Starting email worker",
		zap.Int("max_attempts", w.retry.MaxAttempts),
		zap.Duration("backoff_base", w.retry.BackoffBase),
	)

	for {
		m, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				telemetry.Logger.Info("Email worker stopped")
				return nil
			}
			telemetry.Logger.Error("Failed to fetch email task", zap.Error(err))
			continue
		}

		if !w.process(ctx, m) {
			continue
		}
		if err := w.reader.CommitMessages(ctx, m); err != nil {
			telemetry.Logger.Error("Failed to commit email task",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

// process reports whether the message should be committed.
func (w *Worker) process(ctx context.Context, m kafka.Message) bool {
	var task models.EmailTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.OrderID == "" {
		telemetry.Logger.Error("Dropping malformed email task",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.ByteString("value", m.Value),
		)
		return true
	}

	ctx = telemetry.ExtractTraceparent(ctx, header(m, "traceparent"))
	ctx, span := telemetry.Tracer.Start(ctx, "email.worker.process")
	defer span.End()

	if !w.retry.deliver(ctx, w.handler, task) && ctx.Err() != nil {
		// Shutting down mid-retry; leave the offset for the next consumer.
		return false
	}
	return true
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
