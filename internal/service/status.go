package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const (
	SourceDatabase = "database"
	SourceProvider = "mtn_api"

	NoteConfigInvalid = "MTN API config invalid, using cached status"
	NoteTokenFailed   = "Failed to get access token"
	NoteAPIFailed     = "MTN API call failed"
)

type StatusResult struct {
	ReferenceID            string
	Status                 models.TransactionStatus
	Amount                 decimal.Decimal
	Currency               string
	PaidAt                 *time.Time
	FinancialTransactionID string
	Source                 string
	Note                   string
}

// StatusPoller answers status queries, asking the provider only while the
// local record is still pending. It never runs the fan-out.
type StatusPoller struct {
	cfg      config.MoMoConfig
	tokens   interfaces.TokenProvider
	provider interfaces.CollectionProvider
	repo     interfaces.TransactionRepository
	events   interfaces.EventPublisher
	now      func() time.Time
}

func NewStatusPoller(
	cfg config.MoMoConfig,
	tokens interfaces.TokenProvider,
	provider interfaces.CollectionProvider,
	repo interfaces.TransactionRepository,
	events interfaces.EventPublisher,
) *StatusPoller {
	return &StatusPoller{
		cfg:      cfg,
		tokens:   tokens,
		provider: provider,
		repo:     repo,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *StatusPoller) GetStatus(ctx context.Context, referenceID string) (*StatusResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "status.GetStatus")
	defer span.End()

	tx, err := p.repo.GetByReferenceID(ctx, referenceID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find transaction", Err: err}
	}

	if tx.Status.IsTerminal() {
		return p.cached(tx, ""), nil
	}

	if err := p.cfg.Validate(); err != nil {
		telemetry.Logger.Warn("Skipping live status check", zap.Error(err))
		return p.cached(tx, NoteConfigInvalid), nil
	}

	token, err := p.tokens.GetAccessToken(ctx)
	if err != nil {
		telemetry.Logger.Warn("Failed to get access token for status check",
			zap.String("reference_id", referenceID),
			zap.Error(err),
		)
		return p.cached(tx, NoteTokenFailed), nil
	}

	remote, err := p.provider.GetRequestToPayStatus(ctx, token.AccessToken, referenceID)
	if err != nil {
		telemetry.Logger.Warn("MTN API status call failed",
			zap.String("reference_id", referenceID),
			zap.Error(err),
		)
		return p.cached(tx, NoteAPIFailed), nil
	}

	status := p.apply(ctx, tx, remote)

	telemetry.StatusPollsTotal.WithLabelValues(SourceProvider).Inc()
	return &StatusResult{
		ReferenceID:            referenceID,
		Status:                 status,
		Amount:                 tx.Amount,
		Currency:               tx.Currency,
		PaidAt:                 tx.PaidAt,
		FinancialTransactionID: remote.FinancialTransactionID.String(),
		Source:                 SourceProvider,
	}, nil
}

// apply records a terminal provider status on the pending row and returns
// the status to report. A write that loses the race to a callback reports
// whatever the winner stored.
func (p *StatusPoller) apply(ctx context.Context, tx *models.Transaction, remote *models.CallbackPayload) models.TransactionStatus {
	next, err := models.Transition(tx.Status, models.EventFromProvider(remote.Status))
	if err != nil || next == tx.Status {
		return tx.Status
	}

	now := p.now()
	update := models.TransitionUpdate{
		TransactionID: tx.ID,
		From:          tx.Status,
		To:            next,
		CallbackData:  remote.Raw,
		At:            now,
	}
	if next == models.StatusSuccess {
		update.PaidAt = &now
		update.ExternalID = remote.FinancialTransactionID.String()
	} else {
		update.ErrorMessage = remote.Reason.FailureMessage()
	}

	rows, err := p.repo.ApplyTransition(ctx, update)
	if err != nil {
		telemetry.Logger.Error("Failed to record polled status",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err),
		)
		return next
	}
	if rows == 0 {
		current, err := p.repo.GetByReferenceID(ctx, tx.ReferenceID)
		if err != nil {
			return next
		}
		tx.PaidAt = current.PaidAt
		return current.Status
	}

	tx.PaidAt = update.PaidAt
	_ = p.events.PublishStateChanged(ctx, models.StateChangedEvent{
		TransactionID:  tx.ID,
		ReferenceID:    tx.ReferenceID,
		OrderID:        tx.OrderID,
		Status:         next,
		PreviousStatus: tx.Status,
		Source:         models.SourcePoller,
		Timestamp:      now,
	})
	telemetry.Logger.Info("Transaction status updated from provider",
		zap.String("reference_id", tx.ReferenceID),
		zap.String("status", string(next)),
	)
	return next
}

func (p *StatusPoller) cached(tx *models.Transaction, note string) *StatusResult {
	telemetry.StatusPollsTotal.WithLabelValues(SourceDatabase).Inc()
	return &StatusResult{
		ReferenceID:            tx.ReferenceID,
		Status:                 tx.Status,
		Amount:                 tx.Amount,
		Currency:               tx.Currency,
		PaidAt:                 tx.PaidAt,
		FinancialTransactionID: financialID(tx),
		Source:                 SourceDatabase,
		Note:                   note,
	}
}

// financialID reports the provider id once a successful payment replaced the
// order id in ExternalID.
func financialID(tx *models.Transaction) string {
	if tx.Status != models.StatusSuccess || tx.ExternalID == tx.OrderID {
		return ""
	}
	return tx.ExternalID
}
