package cartrepo

import (
	"context"
	"errors"

	"github.com/Themagician24/neo-kora/internal/domain"
)

// Repository defines the durable cart storage the store writes through to.
// Consumers define this interface, not the MongoDB implementation. The
// store owns all item-level mutation, so the contract is whole-cart.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Upsert(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var (
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartCorrupted signals a persisted cart that no longer decodes.
	// Callers recover by starting from an empty cart.
	ErrCartCorrupted = errors.New("persisted cart is corrupted")
)
