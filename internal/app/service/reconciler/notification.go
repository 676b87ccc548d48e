package reconciler

import (
	"errors"
	"fmt"
)

// Notification is the normalized shape of a provider callback. The handler
// binds it from either a JSON body or URL-encoded form fields; both arrive
// here identically.
type Notification struct {
	MerchantID    string `json:"merchantId" form:"merchantId"`
	TransactionID string `json:"transactionId" form:"transactionId"`
	// Amount is in minor currency units (paisa).
	Amount int64  `json:"amount" form:"amount"`
	Code   string `json:"code" form:"code"`
	// ProviderReferenceID is the provider-side payment id, logged for
	// support diagnosis only.
	ProviderReferenceID string `json:"providerReferenceId" form:"providerReferenceId"`
}

// SuccessCode is the provider token marking a captured payment; any other
// code is a failure.
const SuccessCode = "PAYMENT_SUCCESS"

var (
	ErrMalformedNotification = errors.New("malformed notification")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrUnrecognizedAmount    = errors.New("unrecognized payment amount")
)

// Validate checks required fields. Nothing is read from or written to the
// ledger before this passes.
func (n *Notification) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: empty payload", ErrMalformedNotification)
	}
	if n.MerchantID == "" {
		return fmt.Errorf("%w: missing merchantId", ErrMalformedNotification)
	}
	if n.TransactionID == "" {
		return fmt.Errorf("%w: missing transactionId", ErrMalformedNotification)
	}
	if n.Amount <= 0 {
		return fmt.Errorf("%w: missing or invalid amount", ErrMalformedNotification)
	}
	if n.Code == "" {
		return fmt.Errorf("%w: missing code", ErrMalformedNotification)
	}
	return nil
}

func (n *Notification) Succeeded() bool {
	return n.Code == SuccessCode
}

// Outcome is what the paying client is redirected with. Duplicate marks an
// idempotent replay of an already-completed transaction.
type Outcome struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Grant     *Grant `json:"grant,omitempty"`
}
