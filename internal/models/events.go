package models

import "time"

const (
	SourceCallback = "callback"
	SourcePoller   = "status_poll"
	SourceInitiate = "initiation"
)

// StateChangedEvent is published after a transaction status write lands.
type StateChangedEvent struct {
	TransactionID  string            `json:"transaction_id"`
	ReferenceID    string            `json:"reference_id"`
	OrderID        string            `json:"order_id"`
	Status         TransactionStatus `json:"status"`
	PreviousStatus TransactionStatus `json:"previous_status"`
	Source         string            `json:"source"`
	Timestamp      time.Time         `json:"timestamp"`
}

type EmailType string

const (
	EmailOrderConfirmation EmailType = "order_confirmation"
	EmailPaymentFailed     EmailType = "payment_failed"
	EmailOrderCancelled    EmailType = "order_cancelled"
)

// EmailTask is handed to the notification queue; delivery happens off the
// request path.
type EmailTask struct {
	OrderID     string    `json:"order_id"`
	Type        EmailType `json:"type"`
	ReferenceID string    `json:"reference_id,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
