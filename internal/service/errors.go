package service

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrInvalidAmount      = errors.New("amount must be greater than 0")
	ErrAmountPrecision    = errors.New("amount has more than 2 decimal places")
	ErrInvalidPayload     = errors.New("invalid callback payload")
	ErrNotFound           = errors.New("transaction not found")
)

// ValidationError is malformed caller input. Reason is one of the Err*
// sentinels above.
type ValidationError struct {
	Reason error
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Reason, e.Fields)
	}
	return e.Reason.Error()
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// PersistenceError is a failed store read or write that the caller must see.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ProviderError is a provider-side failure. StatusCode carries the provider's
// HTTP status when it answered, or a gateway status when it did not.
type ProviderError struct {
	StatusCode  int
	Body        string
	ReferenceID string
	// StillPending is set when the provider may still process the request,
	// so the transaction was left pending.
	StillPending bool
	Err          error
}

func (e *ProviderError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider error %d: %v", e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
