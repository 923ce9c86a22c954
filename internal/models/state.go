package models

import (
	"errors"
	"fmt"
)

// Event is a provider-observed outcome fed into the transaction state machine.
type Event string

const (
	EventPaymentPending   Event = "payment_pending"
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
)

var ErrIllegalTransition = errors.New("illegal transaction status transition")

var transitions = map[TransactionStatus]map[Event]TransactionStatus{
	StatusPending: {
		EventPaymentPending:   StatusPending,
		EventPaymentSucceeded: StatusSuccess,
		EventPaymentFailed:    StatusFailed,
	},
	StatusSuccess: {},
	StatusFailed:  {},
}

// Transition returns the status reached by applying ev to from. Terminal
// statuses accept no events.
func Transition(from TransactionStatus, ev Event) (TransactionStatus, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	return next, nil
}

// EventFromProvider maps a provider status string to a state machine event.
// Anything other than SUCCESSFUL or FAILED is treated as still pending.
func EventFromProvider(status ProviderStatus) Event {
	switch status {
	case ProviderStatusSuccessful:
		return EventPaymentSucceeded
	case ProviderStatusFailed:
		return EventPaymentFailed
	default:
		return EventPaymentPending
	}
}
