package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

type SellerRepository struct {
	db *sql.DB
}

func NewSellerRepository(db *sql.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

func (r *SellerRepository) GetEarnings(ctx context.Context, sellerID string) (models.SellerEarnings, error) {
	e := models.SellerEarnings{SellerID: sellerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT total_earnings, pending_payout FROM seller_profiles WHERE user_id = $1`,
		sellerID).Scan(&e.TotalEarnings, &e.PendingPayout)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SellerEarnings{}, interfaces.ErrNotFound
	}
	return e, err
}

func (r *SellerRepository) SetEarnings(ctx context.Context, e models.SellerEarnings) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE seller_profiles SET total_earnings = $1, pending_payout = $2
		WHERE user_id = $3
	`, e.TotalEarnings, e.PendingPayout, e.SellerID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *SellerRepository) IncrementEarnings(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE seller_profiles
		SET total_earnings = total_earnings + $1, pending_payout = pending_payout + $1
		WHERE user_id = $2
	`, amount, sellerID)
	if err != nil {
		return err
	}
	return requireRow(result)
}
