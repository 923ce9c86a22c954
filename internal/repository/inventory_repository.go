package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) GetStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, interfaces.ErrNotFound
	}
	return stock, err
}

func (r *InventoryRepository) SetStock(ctx context.Context, productID string, quantity int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock_quantity = $1 WHERE id = $2`, quantity, productID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *InventoryRepository) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock_quantity = GREATEST(stock_quantity - $1, 0)
		WHERE id = $2
		RETURNING stock_quantity
	`, quantity, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, interfaces.ErrNotFound
	}
	return stock, err
}
