package interfaces

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// TransactionRepository defines the contract for payment transaction data access
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error)
	// ApplyTransition writes u only if the row is still in u.From and
	// returns the number of rows changed (0 or 1).
	ApplyTransition(ctx context.Context, u models.TransitionUpdate) (int64, error)
	// ClaimFanout marks fan-out as taken for a successful transaction that
	// has not been claimed yet. Exactly one caller ever gets 1.
	ClaimFanout(ctx context.Context, transactionID string) (int64, error)
	RefreshCallbackData(ctx context.Context, transactionID string, payload json.RawMessage) error
}
