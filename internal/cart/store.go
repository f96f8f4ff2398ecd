// Package cart implements the session-scoped cart store: the single source
// of truth every storefront surface reads. Mutations are serialized per
// session, derived prices are recomputed after each change, the result is
// written through to durable storage and broadcast to subscribers.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Themagician24/neo-kora/internal/cache"
	"github.com/Themagician24/neo-kora/internal/cartrepo"
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type Store struct {
	repo    cartrepo.Repository
	cache   cache.CartCache
	catalog *catalog.Catalog
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede on reads

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	subMu   sync.RWMutex
	subs    map[string]map[int]func(domain.Cart)
	nextSub int
}

func NewStore(repo cartrepo.Repository, c cache.CartCache, cat *catalog.Catalog, log *slog.Logger) *Store {
	return &Store{
		repo:    repo,
		cache:   c,
		catalog: cat,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
		subs:    make(map[string]map[int]func(domain.Cart)),
	}
}

// Get returns the cart for the session, reading the cache first and
// falling back to the repository. A missing cart yields a fresh empty one.
// A corrupted persisted cart is dropped and replaced by an empty cart
// rather than surfaced to the caller.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "error", err)
		}

		c, errGet := s.repo.Get(ctx, sessionID)
		if errGet != nil {
			if errors.Is(errGet, cartrepo.ErrCartNotFound) {
				return s.emptyCart(sessionID), nil
			}
			if errors.Is(errGet, cartrepo.ErrCartCorrupted) {
				s.log.Error("persisted cart corrupted, resetting", "session_id", sessionID, "error", errGet)
				if delErr := s.repo.Delete(ctx, sessionID); delErr != nil {
					s.log.Warn("failed to drop corrupted cart", "error", delErr)
				}
				return s.emptyCart(sessionID), nil
			}
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, c); errSet != nil {
				s.log.Warn("cart cache set failed", "error", errSet)
			}
		}()

		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem merges the item into an existing line item with the same product
// variant, clamping the quantity to the available stock, or appends a new
// line item with a freshly generated clientId. It returns the clientId of
// the affected line item.
func (s *Store) AddItem(ctx context.Context, sessionID string, item domain.LineItem, quantity int) (string, error) {
	if item.CountInStock == 0 {
		return "", ErrOutOfStock
	}
	if quantity < 1 {
		quantity = 1
	}

	var clientID string
	err := s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].SameVariant(item) {
				next := c.Items[i].Quantity + quantity
				if next > c.Items[i].CountInStock {
					next = c.Items[i].CountInStock
				}
				c.Items[i].Quantity = next
				clientID = c.Items[i].ClientID
				return nil
			}
		}

		item.ClientID = uuid.NewString()
		if quantity > item.CountInStock {
			quantity = item.CountInStock
		}
		item.Quantity = quantity
		c.Items = append(c.Items, item)
		clientID = item.ClientID
		return nil
	})
	if err != nil {
		return "", err
	}
	return clientID, nil
}

// UpdateItem sets the quantity of the line item with the given clientId.
// Out-of-range quantities are rejected without touching the cart; use
// RemoveItem to drop a line item.
func (s *Store) UpdateItem(ctx context.Context, sessionID, clientID string, quantity int) error {
	return s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		idx := c.FindItem(clientID)
		if idx < 0 {
			return ErrItemNotFound
		}
		if quantity < 1 || quantity > c.Items[idx].CountInStock {
			return ErrInvalidQuantity
		}
		c.Items[idx].Quantity = quantity
		return nil
	})
}

// RemoveItem deletes the line item with the given clientId. Removing an
// absent item is a no-op.
func (s *Store) RemoveItem(ctx context.Context, sessionID, clientID string) error {
	return s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		idx := c.FindItem(clientID)
		if idx < 0 {
			return nil
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		return nil
	})
}

// SetShippingAddress validates and stores the address.
func (s *Store) SetShippingAddress(ctx context.Context, sessionID string, addr domain.ShippingAddress) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	return s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		c.ShippingAddress = &addr
		return nil
	})
}

// SetPaymentMethod stores a payment-method name. The catalog of legal
// names is configuration; the store only rejects blank names.
func (s *Store) SetPaymentMethod(ctx context.Context, sessionID, method string) error {
	if method == "" {
		return ErrEmptyPaymentMethod
	}
	return s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		c.PaymentMethod = method
		return nil
	})
}

// SetDeliveryDateIndex selects a delivery option and resolves the shipping
// price, waiving it when the items price reaches the option's
// free-shipping threshold.
func (s *Store) SetDeliveryDateIndex(ctx context.Context, sessionID string, index int) error {
	if _, err := s.catalog.DeliveryOption(index); err != nil {
		return err
	}
	return s.withCart(ctx, sessionID, func(c *domain.Cart) error {
		c.DeliveryDateIndex = &index
		return nil
	})
}

// Clear resets the session to the empty-cart state and removes the
// persisted copy. Checkout progress is owned by the sequencer and reset
// there.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.invalidateCache(sessionID)

	s.notify(*s.emptyCart(sessionID))
	return nil
}

// Subscribe registers fn to run with a copy of the cart after every
// successful mutation for the session. The returned function removes the
// subscription.
func (s *Store) Subscribe(sessionID string, fn func(domain.Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	if s.subs[sessionID] == nil {
		s.subs[sessionID] = make(map[int]func(domain.Cart))
	}
	s.subs[sessionID][id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[sessionID], id)
		if len(s.subs[sessionID]) == 0 {
			delete(s.subs, sessionID)
		}
	}
}

// withCart loads the session's cart, applies the mutation, recomputes the
// derived prices and writes the result through. Mutations for the same
// session never interleave.
func (s *Store) withCart(ctx context.Context, sessionID string, mutate func(*domain.Cart) error) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	loaded, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	c := loaded.Clone()

	if err := mutate(c); err != nil {
		return err
	}
	recompute(c, s.catalog)

	if err := s.repo.Upsert(ctx, c); err != nil {
		return err
	}
	s.invalidateCache(sessionID)

	s.notify(*c)
	return nil
}

func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *Store) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cart cache invalidate failed", "error", err)
	}
}

func (s *Store) notify(c domain.Cart) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs[c.SessionID] {
		fn(c)
	}
}

func (s *Store) emptyCart(sessionID string) *domain.Cart {
	c := &domain.Cart{
		SessionID: sessionID,
		Items:     nil,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	recompute(c, s.catalog)
	return c
}
