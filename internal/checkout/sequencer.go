// Package checkout layers the step sequencer over the cart store: three
// ordered gates (address, payment, delivery/review) that must be confirmed
// in order before an order can be placed. Editing an earlier gate reopens
// it and reopens every later gate, so an illegal combination such as a
// confirmed review over a pending address can never exist.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Themagician24/neo-kora/internal/cart"
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/domain"
)

// OrderPlacer is the order-creation collaborator. It is handed a fully
// resolved snapshot and owns the order from that point on.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, snapshot domain.OrderSnapshot) (orderID string, err error)
}

const staleProgressAfter = 30 * time.Minute

type Sequencer struct {
	store   *cart.Store
	catalog *catalog.Catalog
	orders  OrderPlacer
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Progress
}

func NewSequencer(store *cart.Store, cat *catalog.Catalog, orders OrderPlacer, log *slog.Logger) *Sequencer {
	return &Sequencer{
		store:    store,
		catalog:  cat,
		orders:   orders,
		log:      log,
		sessions: make(map[string]*Progress),
	}
}

// Progress returns a copy of the session's gate states, creating a fresh
// all-pending progress for a session seen for the first time.
func (s *Sequencer) Progress(sessionID string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.progressLocked(sessionID)
}

// Reset starts a fresh checkout: every gate back to pending. The cart is
// untouched.
func (s *Sequencer) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ConfirmAddress stores the shipping address and confirms the first gate.
// Validation failures leave the gate pending.
func (s *Sequencer) ConfirmAddress(ctx context.Context, sessionID string, addr domain.ShippingAddress) error {
	if err := s.store.SetShippingAddress(ctx, sessionID, addr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progressLocked(sessionID)
	p.Address = GateConfirmed
	return nil
}

// EditAddress reopens the address gate. The stored address is kept so the
// form reopens pre-filled; later gates reopen with it.
func (s *Sequencer) EditAddress(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progressLocked(sessionID)
	p.Address = GatePending
	p.Payment = GatePending
	p.Delivery = GatePending
}

// ConfirmPaymentMethod selects and confirms the payment method. The gate
// is only enterable once the address gate is confirmed.
func (s *Sequencer) ConfirmPaymentMethod(ctx context.Context, sessionID, method string) error {
	s.mu.Lock()
	p := s.progressLocked(sessionID)
	if !p.Address.Confirmed() {
		s.mu.Unlock()
		return ErrGateNotReady
	}
	s.mu.Unlock()

	if err := s.store.SetPaymentMethod(ctx, sessionID, method); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The address gate may have been reopened while the store write was in
	// flight; a confirmed payment gate over a pending address must never
	// exist, so re-verify before confirming.
	p = s.progressLocked(sessionID)
	if !p.Address.Confirmed() {
		return ErrGateNotReady
	}
	p.Payment = GateConfirmed
	return nil
}

// EditPaymentMethod reopens the payment gate and the review gate after it.
func (s *Sequencer) EditPaymentMethod(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progressLocked(sessionID)
	p.Payment = GatePending
	p.Delivery = GatePending
}

// SelectDeliveryDate picks a delivery option while the review gate is
// open. Selecting does not confirm the gate; the shipping price is
// re-resolved live against the current items price.
func (s *Sequencer) SelectDeliveryDate(ctx context.Context, sessionID string, index int) error {
	s.mu.Lock()
	p := s.progressLocked(sessionID)
	if !p.Payment.Confirmed() {
		s.mu.Unlock()
		return ErrGateNotReady
	}
	s.mu.Unlock()

	return s.store.SetDeliveryDateIndex(ctx, sessionID, index)
}

// ConfirmDelivery confirms the review gate. It requires the payment gate
// confirmed and a delivery option selected.
func (s *Sequencer) ConfirmDelivery(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	p := s.progressLocked(sessionID)
	if !p.Payment.Confirmed() {
		s.mu.Unlock()
		return ErrGateNotReady
	}
	s.mu.Unlock()

	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if c.DeliveryDateIndex == nil {
		return ErrCartNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p = s.progressLocked(sessionID)
	if !p.Payment.Confirmed() {
		return ErrGateNotReady
	}
	p.Delivery = GateConfirmed
	return nil
}

// PlaceOrder builds an immutable snapshot of the cart and submits it to
// the order-creation collaborator. On success the cart is cleared and the
// progress reset; on failure both are left untouched so the user can
// retry. A second call while one is outstanding returns ErrOrderInFlight.
func (s *Sequencer) PlaceOrder(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	p := s.progressLocked(sessionID)
	if !p.ReadyToPlaceOrder() {
		s.mu.Unlock()
		return "", ErrGateNotReady
	}
	if p.placing {
		s.mu.Unlock()
		return "", ErrOrderInFlight
	}
	p.placing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		p.placing = false
		s.mu.Unlock()
	}()

	snapshot, err := s.buildSnapshot(ctx, sessionID)
	if err != nil {
		return "", err
	}

	orderID, err := s.orders.CreateOrder(ctx, snapshot)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	if err := s.store.Clear(ctx, sessionID); err != nil {
		// The order exists; losing the cart reset is recoverable noise.
		s.log.Warn("failed to clear cart after order placement", "session_id", sessionID, "error", err)
	}
	s.Reset(sessionID)

	s.log.Info("order placed", "session_id", sessionID, "order_id", orderID, "total", snapshot.TotalPrice)
	return orderID, nil
}

func (s *Sequencer) buildSnapshot(ctx context.Context, sessionID string) (domain.OrderSnapshot, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}
	if c.IsEmpty() || c.ShippingAddress == nil || c.PaymentMethod == "" ||
		c.DeliveryDateIndex == nil || c.ShippingPrice == nil {
		return domain.OrderSnapshot{}, ErrCartNotReady
	}

	opt, err := s.catalog.DeliveryOption(*c.DeliveryDateIndex)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}

	return domain.OrderSnapshot{
		SessionID:            sessionID,
		Items:                append([]domain.LineItem(nil), c.Items...),
		ShippingAddress:      *c.ShippingAddress,
		PaymentMethod:        c.PaymentMethod,
		DeliveryDateIndex:    *c.DeliveryDateIndex,
		ExpectedDeliveryDate: time.Now().AddDate(0, 0, opt.DaysToDeliver),
		ItemsPrice:           c.ItemsPrice,
		ShippingPrice:        *c.ShippingPrice,
		TaxPrice:             c.TaxPrice,
		TotalPrice:           c.TotalPrice,
	}, nil
}

func (s *Sequencer) progressLocked(sessionID string) *Progress {
	p, ok := s.sessions[sessionID]
	if !ok {
		p = newProgress()
		s.sessions[sessionID] = p
	}
	p.updatedAt = time.Now()
	return p
}

// Run purges progress for sessions idle longer than staleProgressAfter
// until the context is cancelled. Abandoned checkouts restart from
// all-pending on the next visit.
func (s *Sequencer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.purgeStale()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sequencer) purgeStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-staleProgressAfter)
	for id, p := range s.sessions {
		if !p.placing && p.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
