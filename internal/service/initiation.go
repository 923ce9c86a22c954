package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/momo"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

type InitiateRequest struct {
	OrderID string
	Phone   string
	Amount  decimal.NullDecimal
	UserID  string
}

type InitiateResult struct {
	ReferenceID   string
	TransactionID string
	Status        models.TransactionStatus
}

// PaymentService starts request-to-pay collections.
type PaymentService struct {
	cfg      config.MoMoConfig
	tokens   interfaces.TokenProvider
	provider interfaces.CollectionProvider
	repo     interfaces.TransactionRepository
	orders   interfaces.OrderStore
	events   interfaces.EventPublisher

	newID func() string
	now   func() time.Time
}

func NewPaymentService(
	cfg config.MoMoConfig,
	tokens interfaces.TokenProvider,
	provider interfaces.CollectionProvider,
	repo interfaces.TransactionRepository,
	orders interfaces.OrderStore,
	events interfaces.EventPublisher,
) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		tokens:   tokens,
		provider: provider,
		repo:     repo,
		orders:   orders,
		events:   events,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validateInitiate(req InitiateRequest) (string, error) {
	var missing []string
	if strings.TrimSpace(req.OrderID) == "" {
		missing = append(missing, "order_id")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if !req.Amount.Valid {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if len(missing) > 0 {
		return "", &ValidationError{Reason: ErrMissingFields, Fields: missing}
	}

	msisdn, err := NormalizeMSISDN(req.Phone)
	if err != nil {
		return "", err
	}
	if !req.Amount.Decimal.IsPositive() {
		return "", &ValidationError{Reason: ErrInvalidAmount}
	}
	// Amounts are stored as NUMERIC(14,2); anything finer would be charged
	// differently from what is recorded.
	if !req.Amount.Decimal.Equal(req.Amount.Decimal.Round(2)) {
		return "", &ValidationError{Reason: ErrAmountPrecision}
	}
	return msisdn, nil
}

// Initiate validates req, records a pending transaction and asks the
// provider to collect. The returned status is always pending: payment success
// only arrives through the callback or a status poll.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "payment.Initiate")
	defer span.End()

	msisdn, err := validateInitiate(req)
	if err != nil {
		telemetry.InitiationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		telemetry.InitiationsTotal.WithLabelValues("config_error").Inc()
		return nil, err
	}

	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		telemetry.InitiationsTotal.WithLabelValues("auth_error").Inc()
		return nil, err
	}

	amount := req.Amount.Decimal
	fee, earnings := models.SplitAmount(amount)
	now := s.now()
	tx := &models.Transaction{
		ID:             s.newID(),
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		SellerID:       s.lookupSeller(ctx, req.OrderID),
		Amount:         amount,
		Currency:       s.currency(),
		PaymentMethod:  models.PaymentMethodMoMo,
		Status:         models.StatusPending,
		PlatformFee:    fee,
		SellerEarnings: earnings,
		ReferenceID:    s.newID(),
		ExternalID:     req.OrderID,
		PhoneNumber:    req.Phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The row must exist before the provider can call back about it.
	if err := s.repo.Create(ctx, tx); err != nil {
		telemetry.InitiationsTotal.WithLabelValues("persistence_error").Inc()
		telemetry.Logger.Error("Error saving transaction",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil, &PersistenceError{Op: "save transaction", Err: err}
	}

	err = s.provider.RequestToPay(ctx, token.AccessToken, models.RequestToPay{
		ReferenceID:  tx.ReferenceID,
		Amount:       amount.String(),
		Currency:     tx.Currency,
		ExternalID:   req.OrderID,
		Payer:        models.Payer{PartyIDType: "MSISDN", PartyID: msisdn},
		PayerMessage: fmt.Sprintf("Payment for order %s", req.OrderID),
		PayeeNote:    fmt.Sprintf("Order %s", req.OrderID),
	})
	if err != nil {
		return nil, s.handleProviderFailure(ctx, tx, err)
	}

	telemetry.InitiationsTotal.WithLabelValues("accepted").Inc()
	telemetry.Logger.Info("Payment request accepted",
		zap.String("reference_id", tx.ReferenceID),
		zap.String("transaction_id", tx.ID),
		zap.String("order_id", tx.OrderID),
		zap.String("amount", amount.String()),
	)

	return &InitiateResult{
		ReferenceID:   tx.ReferenceID,
		TransactionID: tx.ID,
		Status:        models.StatusPending,
	}, nil
}

// handleProviderFailure marks the transaction failed only when the provider
// definitely rejected the request. Transport errors and timeouts leave it
// pending for the callback or a status poll to settle.
func (s *PaymentService) handleProviderFailure(ctx context.Context, tx *models.Transaction, err error) error {
	var apiErr *momo.APIError
	if !errors.As(err, &apiErr) {
		telemetry.InitiationsTotal.WithLabelValues("provider_unreachable").Inc()
		telemetry.Logger.Warn("Request to pay outcome unknown, leaving transaction pending",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err),
		)
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		return &ProviderError{StatusCode: status, ReferenceID: tx.ReferenceID, StillPending: true, Err: err}
	}

	telemetry.InitiationsTotal.WithLabelValues("rejected").Inc()
	reason := apiErr.Body
	if reason == "" {
		reason = http.StatusText(apiErr.StatusCode)
	}

	rows, updateErr := s.repo.ApplyTransition(context.WithoutCancel(ctx), models.TransitionUpdate{
		TransactionID: tx.ID,
		From:          models.StatusPending,
		To:            models.StatusFailed,
		ErrorMessage:  reason,
		At:            s.now(),
	})
	switch {
	case updateErr != nil:
		telemetry.Logger.Error("Failed to mark rejected transaction as failed",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(updateErr),
		)
	case rows == 1:
		_ = s.events.PublishStateChanged(ctx, models.StateChangedEvent{
			TransactionID:  tx.ID,
			ReferenceID:    tx.ReferenceID,
			OrderID:        tx.OrderID,
			Status:         models.StatusFailed,
			PreviousStatus: models.StatusPending,
			Source:         models.SourceInitiate,
			Timestamp:      s.now(),
		})
	}

	return &ProviderError{StatusCode: apiErr.StatusCode, Body: apiErr.Body, ReferenceID: tx.ReferenceID, Err: err}
}

// lookupSeller resolves the order's seller for the earnings split. A missing
// order leaves the transaction without a seller.
func (s *PaymentService) lookupSeller(ctx context.Context, orderID string) string {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		telemetry.Logger.Warn("Could not resolve seller for order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return ""
	}
	return order.SellerID
}

func (s *PaymentService) currency() string {
	if s.cfg.Currency == "" {
		return models.DefaultCurrency
	}
	return s.cfg.Currency
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
