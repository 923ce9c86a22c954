package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPaid   = "paid"
	PaymentStatusPaid = "paid"
)

type Order struct {
	ID            string
	UserID        string
	SellerID      string
	Status        string
	PaymentStatus string
	TransactionID string
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	Items         []OrderItem
}

type OrderItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	PriceAtTime decimal.Decimal
}

// LineTotal is the snapshot price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type SellerEarnings struct {
	SellerID      string
	TotalEarnings decimal.Decimal
	PendingPayout decimal.Decimal
}
