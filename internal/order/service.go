package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/google/uuid"
)

var ErrInvalidSnapshot = errors.New("order snapshot is incomplete")

// Service turns checkout snapshots into persisted orders. It implements
// the sequencer's OrderPlacer contract; the call is atomic from the
// client's point of view, either the order and its outbox event commit
// together or nothing does.
type Service struct {
	repo RepoInterface
	log  *slog.Logger
}

func NewService(repo RepoInterface, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) CreateOrder(ctx context.Context, snapshot domain.OrderSnapshot) (string, error) {
	if len(snapshot.Items) == 0 || snapshot.PaymentMethod == "" {
		return "", ErrInvalidSnapshot
	}
	if err := snapshot.ShippingAddress.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	now := time.Now()
	o := &Order{
		ID:                   uuid.NewString(),
		SessionID:            snapshot.SessionID,
		Items:                snapshot.Items,
		ShippingAddress:      snapshot.ShippingAddress,
		PaymentMethod:        snapshot.PaymentMethod,
		ExpectedDeliveryDate: snapshot.ExpectedDeliveryDate,
		ItemsPrice:           snapshot.ItemsPrice,
		ShippingPrice:        snapshot.ShippingPrice,
		TaxPrice:             snapshot.TaxPrice,
		TotalPrice:           snapshot.TotalPrice,
		Status:               StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return "", err
	}

	s.log.Info("order created", "order_id", o.ID, "total", o.TotalPrice, "payment_method", o.PaymentMethod)
	return o.ID, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) MarkPaid(ctx context.Context, id, paymentID string) error {
	return s.repo.MarkPaid(ctx, id, paymentID)
}
