package order

import (
	"time"

	"github.com/Themagician24/neo-kora/internal/domain"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
)

// Order is the persisted result of a successful checkout. Items and the
// shipping address are stored as the JSON captured in the snapshot; the
// cart they came from is no longer authoritative.
type Order struct {
	ID                   string                 `json:"id"`
	SessionID            string                 `json:"-"`
	Items                []domain.LineItem      `json:"items"`
	ShippingAddress      domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod        string                 `json:"paymentMethod"`
	ExpectedDeliveryDate time.Time              `json:"expectedDeliveryDate"`
	ItemsPrice           float64                `json:"itemsPrice"`
	ShippingPrice        float64                `json:"shippingPrice"`
	TaxPrice             float64                `json:"taxPrice"`
	TotalPrice           float64                `json:"totalPrice"`
	Status               Status                 `json:"status"`
	IsPaid               bool                   `json:"isPaid"`
	PaidAt               *time.Time             `json:"paidAt,omitempty"`
	PaymentID            string                 `json:"paymentId,omitempty"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}
