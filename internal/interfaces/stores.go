package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID, transactionID string) error
}

// InventoryStore is the read-then-write view of product stock. Stores that
// can decrement in one statement also implement AtomicStockDecrementer.
type InventoryStore interface {
	GetStock(ctx context.Context, productID string) (int, error)
	SetStock(ctx context.Context, productID string, quantity int) error
}

type AtomicStockDecrementer interface {
	// DecrementStock lowers stock by quantity, clamped at zero, and returns
	// the new level.
	DecrementStock(ctx context.Context, productID string, quantity int) (int, error)
}

type CartStore interface {
	ClearCart(ctx context.Context, userID string) (int64, error)
}

// EarningsStore is the read-then-write view of the seller ledger. Stores
// that can increment in one statement also implement AtomicEarningsIncrementer.
type EarningsStore interface {
	GetEarnings(ctx context.Context, sellerID string) (models.SellerEarnings, error)
	SetEarnings(ctx context.Context, e models.SellerEarnings) error
}

type AtomicEarningsIncrementer interface {
	IncrementEarnings(ctx context.Context, sellerID string, amount decimal.Decimal) error
}

type UserDirectory interface {
	GetEmail(ctx context.Context, userID string) (string, error)
}

// RowLocker serializes read-then-write updates to a single row.
type RowLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
