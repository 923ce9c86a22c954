package models

import (
	"bytes"
	"encoding/json"
)

type ProviderStatus string

const (
	ProviderStatusSuccessful ProviderStatus = "SUCCESSFUL"
	ProviderStatusFailed     ProviderStatus = "FAILED"
	ProviderStatusPending    ProviderStatus = "PENDING"
)

type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Payer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// RequestToPay is the body of a collection request-to-pay call.
type RequestToPay struct {
	ReferenceID  string `json:"-"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        Payer  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// CallbackPayload is what the provider posts to the callback URL and also
// what the request-to-pay status endpoint returns.
// Only Status, FinancialTransactionID and Reason drive reconciliation; the
// other fields are decoded leniently so an odd type never rejects a delivery.
type CallbackPayload struct {
	FinancialTransactionID Text            `json:"financialTransactionId,omitempty"`
	ExternalID             Text            `json:"externalId,omitempty"`
	Amount                 Text            `json:"amount,omitempty"`
	Currency               Text            `json:"currency,omitempty"`
	Payer                  json.RawMessage `json:"payer,omitempty"`
	Status                 ProviderStatus  `json:"status,omitempty"`
	Reason                 Reason          `json:"reason,omitempty"`

	// Raw is the body as received, stored verbatim on the transaction.
	Raw json.RawMessage `json:"-"`
}

// Text accepts a JSON string or any scalar, keeping non-strings in their
// literal form ("amount": 1000 becomes "1000").
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

const DefaultFailureMessage = "Payment failed"

// FailureMessage is what gets stored as the error message of a failed
// transaction.
func (r Reason) FailureMessage() string {
	if r == "" {
		return DefaultFailureMessage
	}
	return string(r)
}

// Reason accepts both the plain string form and the {code, message} object
// form the provider uses for failure reasons.
type Reason string

func (r *Reason) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Reason(s)
		return nil
	}
	if data[0] != '{' {
		*r = Reason(data)
		return nil
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Message != "" && obj.Code != "":
		*r = Reason(obj.Code + ": " + obj.Message)
	case obj.Message != "":
		*r = Reason(obj.Message)
	default:
		*r = Reason(obj.Code)
	}
	return nil
}
