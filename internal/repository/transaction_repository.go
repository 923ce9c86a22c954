package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, order_id, user_id, seller_id, amount, currency, payment_method, status,
			platform_fee, seller_earnings, momo_reference_id, momo_external_id,
			momo_phone_number, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`,
		tx.ID, tx.OrderID, tx.UserID, nullString(tx.SellerID), tx.Amount, tx.Currency,
		tx.PaymentMethod, string(tx.Status), tx.PlatformFee, tx.SellerEarnings,
		tx.ReferenceID, nullString(tx.ExternalID), nullString(tx.PhoneNumber), tx.CreatedAt,
	)
	return err
}

func (r *TransactionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error) {
	var (
		tx                                    models.Transaction
		status                                string
		sellerID, externalID, phone, errorMsg sql.NullString
		paidAt, fanoutClaimedAt               sql.NullTime
		callbackData                          []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, seller_id, amount, currency, payment_method, status,
			platform_fee, seller_earnings, momo_reference_id, momo_external_id,
			momo_phone_number, callback_data, error_message, created_at, paid_at,
			updated_at, fanout_claimed_at
		FROM transactions WHERE momo_reference_id = $1
	`, referenceID).Scan(
		&tx.ID, &tx.OrderID, &tx.UserID, &sellerID, &tx.Amount, &tx.Currency,
		&tx.PaymentMethod, &status, &tx.PlatformFee, &tx.SellerEarnings, &tx.ReferenceID,
		&externalID, &phone, &callbackData, &errorMsg, &tx.CreatedAt, &paidAt,
		&tx.UpdatedAt, &fanoutClaimedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tx.Status = models.TransactionStatus(status)
	tx.SellerID = sellerID.String
	tx.ExternalID = externalID.String
	tx.PhoneNumber = phone.String
	tx.ErrorMessage = errorMsg.String
	tx.CallbackData = callbackData
	if paidAt.Valid {
		tx.PaidAt = &paidAt.Time
	}
	if fanoutClaimedAt.Valid {
		tx.FanoutClaimedAt = &fanoutClaimedAt.Time
	}
	return &tx, nil
}

func (r *TransactionRepository) ApplyTransition(ctx context.Context, u models.TransitionUpdate) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1,
			callback_data = COALESCE($2::jsonb, callback_data),
			momo_external_id = COALESCE(NULLIF($3, ''), momo_external_id),
			error_message = COALESCE(NULLIF($4, ''), error_message),
			paid_at = COALESCE($5, paid_at),
			fanout_claimed_at = CASE WHEN $6 THEN $7 ELSE fanout_claimed_at END,
			updated_at = $7
		WHERE id = $8 AND status = $9
	`, string(u.To), nullJSON(u.CallbackData), u.ExternalID, u.ErrorMessage, u.PaidAt,
		u.ClaimFanout, u.At, u.TransactionID, string(u.From))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TransactionRepository) ClaimFanout(ctx context.Context, transactionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET fanout_claimed_at = NOW()
		WHERE id = $1 AND status = $2 AND fanout_claimed_at IS NULL
	`, transactionID, string(models.StatusSuccess))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TransactionRepository) RefreshCallbackData(ctx context.Context, transactionID string, payload json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET callback_data = $1::jsonb, updated_at = NOW() WHERE id = $2`,
		nullJSON(payload), transactionID)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// lib/pq sends []byte as bytea, so JSON goes over the wire as text.
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
