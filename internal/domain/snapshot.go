package domain

import "time"

// OrderSnapshot is the immutable projection of the cart submitted at order
// placement. After submission the order-creation service owns it; the cart
// is no longer authoritative.
type OrderSnapshot struct {
	SessionID            string          `json:"-"`
	Items                []LineItem      `json:"items"`
	ShippingAddress      ShippingAddress `json:"shippingAddress"`
	PaymentMethod        string          `json:"paymentMethod"`
	DeliveryDateIndex    int             `json:"deliveryDateIndex"`
	ExpectedDeliveryDate time.Time       `json:"expectedDeliveryDate"`
	ItemsPrice           float64         `json:"itemsPrice"`
	ShippingPrice        float64         `json:"shippingPrice"`
	TaxPrice             float64         `json:"taxPrice"`
	TotalPrice           float64         `json:"totalPrice"`
}
