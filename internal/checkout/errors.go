package checkout

import "errors"

var (
	// ErrGateNotReady rejects confirming a gate before the previous one,
	// or placing an order before every gate is confirmed.
	ErrGateNotReady = errors.New("previous checkout step not confirmed")
	// ErrOrderInFlight rejects a duplicate place-order while one is
	// already outstanding for the session.
	ErrOrderInFlight = errors.New("order submission already in flight")
	// ErrCartNotReady rejects placing an order from a cart missing items,
	// address, payment method or delivery option.
	ErrCartNotReady = errors.New("cart is not ready for order placement")
)
