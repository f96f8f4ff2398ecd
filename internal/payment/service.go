package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Themagician24/neo-kora/internal/order"
)

// Orders is the slice of the order store the payment flow needs.
type Orders interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	MarkPaid(ctx context.Context, id, paymentID string) error
}

// Service drives the capture flow for placed orders: create an intent with
// the provider matching the order's payment method, then confirm it and
// mark the order paid. A per-order in-flight guard keeps a double-clicked
// confirm button from capturing twice.
type Service struct {
	providers map[string]Provider
	orders    Orders
	log       *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

func NewService(providers map[string]Provider, orders Orders, log *slog.Logger) *Service {
	return &Service{
		providers: providers,
		orders:    orders,
		log:       log,
		inflight:  make(map[string]bool),
	}
}

// CreateIntent registers the order total with the order's payment
// provider and returns the provider reference.
func (s *Service) CreateIntent(ctx context.Context, orderID string) (string, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	provider, ok := s.providers[o.PaymentMethod]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, o.PaymentMethod)
	}

	ref, err := provider.CreateIntent(ctx, o.ID, o.TotalPrice)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	s.log.Info("payment intent created", "order_id", o.ID, "provider", o.PaymentMethod, "reference", ref)
	return ref, nil
}

// Capture confirms the payment and marks the order paid on success. The
// order stays unpaid on any failure; retry is user-initiated.
func (s *Service) Capture(ctx context.Context, orderID, reference string) (Result, error) {
	s.mu.Lock()
	if s.inflight[orderID] {
		s.mu.Unlock()
		return Result{}, ErrCaptureInFlight
	}
	s.inflight[orderID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, orderID)
		s.mu.Unlock()
	}()

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Result{}, err
	}

	provider, ok := s.providers[o.PaymentMethod]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, o.PaymentMethod)
	}

	res, err := provider.Confirm(ctx, reference)
	if err != nil {
		return Result{}, err
	}

	if err := s.orders.MarkPaid(ctx, o.ID, res.ID); err != nil {
		return Result{}, fmt.Errorf("mark order paid: %w", err)
	}

	s.log.Info("payment captured", "order_id", o.ID, "payment_id", res.ID)
	return res, nil
}
