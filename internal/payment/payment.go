// Package payment holds the capture-side collaborators: provider clients
// that create and confirm a remote payment for an already placed order,
// and the service coordinating them with the order store. Providers are
// opaque request/response collaborators; only the succeeded/failed outcome
// matters here.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrPaymentFailed reports a provider that answered but refused the
	// charge. The order stays unpaid and the user may retry.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrUnknownProvider rejects a payment method no provider handles.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrCaptureInFlight rejects a duplicate capture while one is
	// outstanding for the same order.
	ErrCaptureInFlight = errors.New("payment capture already in flight")
)

// Result carries what the order record keeps about a settled payment.
type Result struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	EmailAddress string `json:"email_address,omitempty"`
}

// Provider is one remote payment backend.
type Provider interface {
	// CreateIntent registers the amount with the provider and returns the
	// provider-side reference the client continues with.
	CreateIntent(ctx context.Context, orderID string, amount float64) (string, error)
	// Confirm captures the payment for a previously created reference.
	Confirm(ctx context.Context, reference string) (Result, error)
}
