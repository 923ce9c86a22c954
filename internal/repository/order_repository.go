package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

// OrderRepository reads orders and carts owned by the storefront. It only
// updates payment fields and never creates or deletes orders.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var (
		order                           models.Order
		userID, sellerID, transactionID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, seller_id, status, payment_status, transaction_id, total_amount, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&order.ID, &userID, &sellerID, &order.Status, &order.PaymentStatus,
		&transactionID, &order.TotalAmount, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	order.UserID = userID.String
	order.SellerID = sellerID.String
	order.TransactionID = transactionID.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price_at_time
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order.Items = make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtTime); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, transactionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, status = $2, transaction_id = $3
		WHERE id = $4
	`, models.PaymentStatusPaid, models.OrderStatusPaid, transactionID, orderID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *OrderRepository) ClearCart(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
