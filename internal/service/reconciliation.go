package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const fanoutTimeout = 30 * time.Second

type CallbackResult struct {
	ReferenceID string
	Status      models.TransactionStatus
	// Transitioned is true when this delivery moved the transaction out of
	// pending.
	Transitioned bool
	Fanout       *FanoutReport
}

// Reconciler applies provider callbacks to stored transactions.
type Reconciler struct {
	repo   interfaces.TransactionRepository
	fanout *Fanout
	tasks  interfaces.TaskQueue
	events interfaces.EventPublisher
	now    func() time.Time
}

func NewReconciler(
	repo interfaces.TransactionRepository,
	fanout *Fanout,
	tasks interfaces.TaskQueue,
	events interfaces.EventPublisher,
) *Reconciler {
	return &Reconciler{
		repo:   repo,
		fanout: fanout,
		tasks:  tasks,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HandleCallback reconciles one delivery. Only ErrNotFound, invalid payloads
// and failed status writes are reported; fan-out failures never are.
func (r *Reconciler) HandleCallback(ctx context.Context, referenceID string, raw []byte) (*CallbackResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "reconcile.HandleCallback")
	defer span.End()

	var payload models.CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		telemetry.CallbacksTotal.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Reason: ErrInvalidPayload}
	}

	telemetry.Logger.Info("Payment callback received",
		zap.String("reference_id", referenceID),
		zap.String("status", string(payload.Status)),
		zap.String("external_id", payload.ExternalID.String()),
		zap.String("amount", payload.Amount.String()),
	)

	tx, err := r.load(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	// The fan-out must finish even if the provider hangs up.
	ctx = context.WithoutCancel(ctx)

	event := models.EventFromProvider(payload.Status)
	next, err := models.Transition(tx.Status, event)
	if err != nil {
		return r.redelivery(ctx, tx, event, raw)
	}
	if next == tx.Status {
		if err := r.repo.RefreshCallbackData(ctx, tx.ID, raw); err != nil {
			return nil, &PersistenceError{Op: "update transaction", Err: err}
		}
		telemetry.CallbacksTotal.WithLabelValues("pending").Inc()
		return &CallbackResult{ReferenceID: referenceID, Status: tx.Status}, nil
	}

	now := r.now()
	update := models.TransitionUpdate{
		TransactionID: tx.ID,
		From:          tx.Status,
		To:            next,
		CallbackData:  raw,
		At:            now,
	}
	switch next {
	case models.StatusSuccess:
		update.PaidAt = &now
		update.ExternalID = payload.FinancialTransactionID.String()
		update.ClaimFanout = true
	case models.StatusFailed:
		update.ErrorMessage = payload.Reason.FailureMessage()
	}

	rows, err := r.repo.ApplyTransition(ctx, update)
	if err != nil {
		telemetry.CallbacksTotal.WithLabelValues("persistence_error").Inc()
		return nil, &PersistenceError{Op: "update transaction", Err: err}
	}
	if rows == 0 {
		// Another writer settled the row between our read and write.
		current, err := r.load(ctx, referenceID)
		if err != nil {
			return nil, err
		}
		return r.redelivery(ctx, current, event, raw)
	}

	tx.Status = next
	tx.CallbackData = raw
	tx.UpdatedAt = now
	if next == models.StatusSuccess {
		tx.PaidAt = &now
		if update.ExternalID != "" {
			tx.ExternalID = update.ExternalID
		}
	} else {
		tx.ErrorMessage = update.ErrorMessage
	}
	r.publish(ctx, tx, models.StatusPending)

	result := &CallbackResult{ReferenceID: referenceID, Status: next, Transitioned: true}
	switch next {
	case models.StatusSuccess:
		report := r.runFanout(ctx, tx)
		result.Fanout = &report
		telemetry.CallbacksTotal.WithLabelValues("success").Inc()
	case models.StatusFailed:
		r.notifyFailure(ctx, tx)
		telemetry.CallbacksTotal.WithLabelValues("failed").Inc()
	}
	return result, nil
}

// redelivery handles a callback for a transaction that is already terminal:
// only the raw payload is refreshed. A success callback for a row finalized
// by the status poller still gets its one fan-out, guarded by ClaimFanout.
func (r *Reconciler) redelivery(ctx context.Context, tx *models.Transaction, event models.Event, raw []byte) (*CallbackResult, error) {
	if err := r.repo.RefreshCallbackData(ctx, tx.ID, raw); err != nil {
		telemetry.Logger.Warn("Failed to refresh callback payload",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err),
		)
	}

	result := &CallbackResult{ReferenceID: tx.ReferenceID, Status: tx.Status}
	if tx.Status == models.StatusSuccess && event == models.EventPaymentSucceeded && tx.FanoutClaimedAt == nil {
		rows, err := r.repo.ClaimFanout(ctx, tx.ID)
		if err != nil {
			telemetry.Logger.Error("Failed to claim fan-out",
				zap.String("reference_id", tx.ReferenceID),
				zap.Error(err),
			)
		} else if rows == 1 {
			report := r.runFanout(ctx, tx)
			result.Fanout = &report
		}
	}

	telemetry.CallbacksTotal.WithLabelValues("duplicate").Inc()
	telemetry.Logger.Info("Callback for settled transaction",
		zap.String("reference_id", tx.ReferenceID),
		zap.String("stored_status", string(tx.Status)),
		zap.String("event", string(event)),
		zap.Bool("fanout_ran", result.Fanout != nil),
	)
	return result, nil
}

func (r *Reconciler) runFanout(ctx context.Context, tx *models.Transaction) FanoutReport {
	ctx, cancel := context.WithTimeout(ctx, fanoutTimeout)
	defer cancel()

	report := r.fanout.Run(ctx, tx)
	if failed := report.Failed(); len(failed) > 0 {
		telemetry.Logger.Warn("Fan-out completed with failures",
			zap.String("reference_id", tx.ReferenceID),
			zap.Strings("failed_steps", failed),
		)
	}
	return report
}

func (r *Reconciler) notifyFailure(ctx context.Context, tx *models.Transaction) {
	err := r.tasks.EnqueueEmail(ctx, models.EmailTask{
		OrderID:     tx.OrderID,
		Type:        models.EmailPaymentFailed,
		ReferenceID: tx.ReferenceID,
		EnqueuedAt:  r.now(),
	})
	if err != nil {
		telemetry.Logger.Error("Failed to enqueue payment failed email",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err),
		)
	}
}

func (r *Reconciler) publish(ctx context.Context, tx *models.Transaction, previous models.TransactionStatus) {
	_ = r.events.PublishStateChanged(ctx, models.StateChangedEvent{
		TransactionID:  tx.ID,
		ReferenceID:    tx.ReferenceID,
		OrderID:        tx.OrderID,
		Status:         tx.Status,
		PreviousStatus: previous,
		Source:         models.SourceCallback,
		Timestamp:      r.now(),
	})
}

func (r *Reconciler) load(ctx context.Context, referenceID string) (*models.Transaction, error) {
	tx, err := r.repo.GetByReferenceID(ctx, referenceID)
	if errors.Is(err, interfaces.ErrNotFound) {
		telemetry.CallbacksTotal.WithLabelValues("not_found").Inc()
		telemetry.Logger.Warn("Transaction not found", zap.String("reference_id", referenceID))
		return nil, ErrNotFound
	}
	if err != nil {
		telemetry.CallbacksTotal.WithLabelValues("persistence_error").Inc()
		return nil, &PersistenceError{Op: "find transaction", Err: err}
	}
	return tx, nil
}
