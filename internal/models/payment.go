package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

const (
	PaymentMethodMoMo = "mtn_momo"
	DefaultCurrency   = "RWF"
)

// Transaction is one mobile-money collection attempt. ReferenceID is the
// correlation token sent to the provider as X-Reference-Id.
type Transaction struct {
	ID              string
	OrderID         string
	UserID          string
	SellerID        string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   string
	Status          TransactionStatus
	PlatformFee     decimal.Decimal
	SellerEarnings  decimal.Decimal
	ReferenceID     string
	ExternalID      string
	PhoneNumber     string
	CallbackData    json.RawMessage
	ErrorMessage    string
	CreatedAt       time.Time
	PaidAt          *time.Time
	UpdatedAt       time.Time
	FanoutClaimedAt *time.Time
}

// TransitionUpdate describes a conditional status write: it only applies
// while the stored status still equals From.
type TransitionUpdate struct {
	TransactionID string
	From          TransactionStatus
	To            TransactionStatus
	CallbackData  json.RawMessage
	ExternalID    string
	ErrorMessage  string
	PaidAt        *time.Time
	ClaimFanout   bool
	At            time.Time
}
