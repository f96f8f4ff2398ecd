package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Themagician24/neo-kora/internal/cache"
	"github.com/Themagician24/neo-kora/internal/cart"
	"github.com/Themagician24/neo-kora/internal/cartrepo"
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
}

func (r *memoryRepo) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	c, ok := r.carts[sessionID]
	if !ok {
		return nil, cartrepo.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *memoryRepo) Upsert(_ context.Context, c *domain.Cart) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.carts[c.SessionID] = c.Clone()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, sessionID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.carts, sessionID)
	return nil
}

// gatedRepo holds the next armed operation open until released, so a test
// can interleave a concurrent edit into the window between a gate check
// and its confirmation.
type gatedRepo struct {
	*memoryRepo
	gm      sync.Mutex
	op      string
	started chan struct{}
	release chan struct{}
}

func (r *gatedRepo) arm(op string) {
	r.gm.Lock()
	defer r.gm.Unlock()
	r.op = op
	r.started = make(chan struct{})
	r.release = make(chan struct{})
}

func (r *gatedRepo) hold(op string) {
	r.gm.Lock()
	if r.op != op {
		r.gm.Unlock()
		return
	}
	r.op = ""
	started, release := r.started, r.release
	r.gm.Unlock()
	close(started)
	<-release
}

func (r *gatedRepo) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	r.hold("get")
	return r.memoryRepo.Get(ctx, sessionID)
}

func (r *gatedRepo) Upsert(ctx context.Context, c *domain.Cart) error {
	r.hold("upsert")
	return r.memoryRepo.Upsert(ctx, c)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Cart, error) {
	return nil, cache.ErrCacheMiss
}
func (noopCache) Set(context.Context, string, *domain.Cart) error { return nil }
func (noopCache) Delete(context.Context, string) error            { return nil }

// MockOrderPlacer captures the snapshot handed to the order service.
type MockOrderPlacer struct {
	m        sync.Mutex
	Snapshot *domain.OrderSnapshot
	OrderID  string
	Err      error
	Delay    time.Duration
	Calls    int
}

func (m *MockOrderPlacer) CreateOrder(_ context.Context, snapshot domain.OrderSnapshot) (string, error) {
	m.m.Lock()
	m.Calls++
	m.Snapshot = &snapshot
	m.m.Unlock()
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.OrderID, nil
}

func newTestSequencer(placer OrderPlacer) (*Sequencer, *cart.Store) {
	seq, store := newSequencerWithRepo(&memoryRepo{carts: make(map[string]*domain.Cart)}, placer)
	return seq, store
}

func newSequencerWithRepo(repo cartrepo.Repository, placer OrderPlacer) (*Sequencer, *cart.Store) {
	cat := catalog.Default()
	store := cart.NewStore(repo, noopCache{}, cat, slog.Default())
	return NewSequencer(store, cat, placer, slog.Default()), store
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   "Ngoun",
		Street:     "Dombe",
		City:       "Kribi",
		Province:   "Ebolowa",
		PostalCode: "kx2 237",
		Country:    "Le Continent",
		Phone:      "1234567890",
	}
}

func lineItem(price float64, stock int) domain.LineItem {
	return domain.LineItem{
		ProductID:    "p1",
		Name:         "Test p1",
		Slug:         "test-p1",
		Category:     "Shoes",
		Image:        "/images/p1.jpg",
		Price:        price,
		CountInStock: stock,
	}
}

const session = "sess-1"

func TestProgress_StartsAllPending(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})

	p := seq.Progress(session)
	assert.Equal(t, GatePending, p.Address)
	assert.Equal(t, GatePending, p.Payment)
	assert.Equal(t, GatePending, p.Delivery)
	assert.False(t, p.ReadyToPlaceOrder())
}

func TestConfirmPayment_BlockedWhileAddressPending(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})

	err := seq.ConfirmPaymentMethod(context.Background(), session, "PayPal")
	assert.ErrorIs(t, err, ErrGateNotReady)
	assert.Equal(t, GatePending, seq.Progress(session).Payment)
}

func TestSelectDelivery_BlockedWhilePaymentPending(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})
	ctx := context.Background()

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	err := seq.SelectDeliveryDate(ctx, session, 0)
	assert.ErrorIs(t, err, ErrGateNotReady)
}

func TestConfirmAddress_InvalidAddressLeavesGatePending(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})

	err := seq.ConfirmAddress(context.Background(), session, domain.ShippingAddress{FullName: "X"})
	var addrErr *domain.AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, GatePending, seq.Progress(session).Address)
}

func TestEditAddress_ReopensLaterGatesAndKeepsAddress(t *testing.T) {
	seq, store := newTestSequencer(&MockOrderPlacer{})
	ctx := context.Background()

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))

	seq.EditAddress(session)

	p := seq.Progress(session)
	assert.Equal(t, GatePending, p.Address)
	assert.Equal(t, GatePending, p.Payment)

	// The address stays stored so the form reopens pre-filled
	c, err := store.Get(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, c.ShippingAddress)
	assert.Equal(t, "Ngoun", c.ShippingAddress.FullName)
}

func TestConfirmPayment_AddressReopenedDuringWriteStaysUnconfirmed(t *testing.T) {
	repo := &gatedRepo{memoryRepo: &memoryRepo{carts: make(map[string]*domain.Cart)}}
	seq, _ := newSequencerWithRepo(repo, &MockOrderPlacer{})
	ctx := context.Background()

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))

	repo.arm("upsert")
	errCh := make(chan error, 1)
	go func() {
		errCh <- seq.ConfirmPaymentMethod(ctx, session, "PayPal")
	}()

	// The payment-method write is in flight; reopen the address gate
	// underneath it.
	<-repo.started
	seq.EditAddress(session)
	close(repo.release)

	assert.ErrorIs(t, <-errCh, ErrGateNotReady)

	p := seq.Progress(session)
	assert.Equal(t, GatePending, p.Address)
	assert.Equal(t, GatePending, p.Payment)
}

func TestConfirmDelivery_PaymentReopenedDuringLoadStaysUnconfirmed(t *testing.T) {
	repo := &gatedRepo{memoryRepo: &memoryRepo{carts: make(map[string]*domain.Cart)}}
	seq, store := newSequencerWithRepo(repo, &MockOrderPlacer{})
	ctx := context.Background()

	_, err := store.AddItem(ctx, session, lineItem(19.99, 5), 1)
	require.NoError(t, err)
	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))
	require.NoError(t, seq.SelectDeliveryDate(ctx, session, 0))

	repo.arm("get")
	errCh := make(chan error, 1)
	go func() {
		errCh <- seq.ConfirmDelivery(ctx, session)
	}()

	<-repo.started
	seq.EditPaymentMethod(session)
	close(repo.release)

	assert.ErrorIs(t, <-errCh, ErrGateNotReady)
	assert.Equal(t, GatePending, seq.Progress(session).Delivery)
}

func TestConfirmDelivery_RequiresSelectedOption(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})
	ctx := context.Background()

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))

	err := seq.ConfirmDelivery(ctx, session)
	assert.ErrorIs(t, err, ErrCartNotReady)
}

func TestPlaceOrder_BlockedUntilAllGatesConfirmed(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{OrderID: "o-1"})

	_, err := seq.PlaceOrder(context.Background(), session)
	assert.ErrorIs(t, err, ErrGateNotReady)
}

func TestQuantityEditDuringReviewReresolvesShipping(t *testing.T) {
	seq, store := newTestSequencer(&MockOrderPlacer{OrderID: "o-1"})
	ctx := context.Background()

	clientID, err := store.AddItem(ctx, session, lineItem(34.99, 5), 1)
	require.NoError(t, err)
	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))
	require.NoError(t, seq.SelectDeliveryDate(ctx, session, 2))

	c, err := store.Get(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, c.ShippingPrice)
	assert.Equal(t, 4.9, *c.ShippingPrice)

	// Crossing the free-shipping threshold from the review step flips the
	// shipping price without touching gates 1 and 2.
	require.NoError(t, store.UpdateItem(ctx, session, clientID, 2))

	c, err = store.Get(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, c.ShippingPrice)
	assert.Equal(t, 0.0, *c.ShippingPrice)

	p := seq.Progress(session)
	assert.Equal(t, GateConfirmed, p.Address)
	assert.Equal(t, GateConfirmed, p.Payment)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	placer := &MockOrderPlacer{OrderID: "o-42"}
	seq, store := newTestSequencer(placer)
	ctx := context.Background()

	_, err := store.AddItem(ctx, session, lineItem(19.99, 5), 1)
	require.NoError(t, err)

	c, err := store.Get(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 19.99, c.ItemsPrice)

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))
	require.NoError(t, seq.SelectDeliveryDate(ctx, session, 0))
	require.NoError(t, seq.ConfirmDelivery(ctx, session))

	orderID, err := seq.PlaceOrder(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "o-42", orderID)

	require.NotNil(t, placer.Snapshot)
	snap := placer.Snapshot
	assert.Equal(t, 19.99, snap.ItemsPrice)
	assert.Equal(t, 12.9, snap.ShippingPrice)
	assert.Equal(t, domain.Round2(19.99*0.15), snap.TaxPrice)
	assert.Equal(t, domain.Round2(19.99+12.9+domain.Round2(19.99*0.15)), snap.TotalPrice)
	assert.Equal(t, "PayPal", snap.PaymentMethod)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 1), snap.ExpectedDeliveryDate, time.Minute)

	// Cart cleared, progress reset
	c, err = store.Get(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.False(t, seq.Progress(session).ReadyToPlaceOrder())
}

func TestPlaceOrder_FailureLeavesCartAndProgressIntact(t *testing.T) {
	placer := &MockOrderPlacer{Err: errors.New("order service unreachable")}
	seq, store := newTestSequencer(placer)
	ctx := context.Background()

	_, err := store.AddItem(ctx, session, lineItem(19.99, 5), 1)
	require.NoError(t, err)
	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))
	require.NoError(t, seq.SelectDeliveryDate(ctx, session, 0))
	require.NoError(t, seq.ConfirmDelivery(ctx, session))

	_, err = seq.PlaceOrder(ctx, session)
	require.Error(t, err)

	c, err := store.Get(ctx, session)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.True(t, seq.Progress(session).ReadyToPlaceOrder())

	// Manual retry succeeds once the collaborator recovers
	placer.m.Lock()
	placer.Err = nil
	placer.OrderID = "o-7"
	placer.m.Unlock()

	orderID, err := seq.PlaceOrder(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "o-7", orderID)
}

func TestPlaceOrder_DuplicateSubmissionRejectedWhileInFlight(t *testing.T) {
	placer := &MockOrderPlacer{OrderID: "o-1", Delay: 100 * time.Millisecond}
	seq, store := newTestSequencer(placer)
	ctx := context.Background()

	_, err := store.AddItem(ctx, session, lineItem(19.99, 5), 1)
	require.NoError(t, err)
	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	require.NoError(t, seq.ConfirmPaymentMethod(ctx, session, "PayPal"))
	require.NoError(t, seq.SelectDeliveryDate(ctx, session, 0))
	require.NoError(t, seq.ConfirmDelivery(ctx, session))

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := seq.PlaceOrder(ctx, session)
			results <- err
		}()
	}

	first, second := <-results, <-results
	if first == nil {
		assert.ErrorIs(t, second, ErrOrderInFlight)
	} else {
		assert.ErrorIs(t, first, ErrOrderInFlight)
		assert.NoError(t, second)
	}
	assert.Equal(t, 1, placer.Calls)
}

func TestReset_StartsFreshProgress(t *testing.T) {
	seq, _ := newTestSequencer(&MockOrderPlacer{})
	ctx := context.Background()

	require.NoError(t, seq.ConfirmAddress(ctx, session, validAddress()))
	seq.Reset(session)
	assert.Equal(t, GatePending, seq.Progress(session).Address)
}
