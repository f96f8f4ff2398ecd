// Package catalog holds the static storefront configuration: delivery
// options, payment methods and the tax rate. The cart store consults it to
// resolve shipping; it never mutates.
package catalog

import "errors"

var ErrUnknownDeliveryOption = errors.New("unknown delivery option")

// DeliveryOption is one entry of the delivery-date catalog. A
// FreeShippingMinPrice of 0 means the option never waives shipping.
type DeliveryOption struct {
	Name                 string  `json:"name"`
	DaysToDeliver        int     `json:"daysToDeliver"`
	ShippingPrice        float64 `json:"shippingPrice"`
	FreeShippingMinPrice float64 `json:"freeShippingMinPrice"`
}

type PaymentMethod struct {
	Name       string  `json:"name"`
	Commission float64 `json:"commission"`
	IsDefault  bool    `json:"isDefault"`
}

type Catalog struct {
	DeliveryOptions []DeliveryOption `json:"deliveryOptions"`
	PaymentMethods  []PaymentMethod  `json:"paymentMethods"`
	TaxRate         float64          `json:"taxRate"`
}

// Default returns the storefront catalog shipped with the application.
func Default() *Catalog {
	return &Catalog{
		DeliveryOptions: []DeliveryOption{
			{Name: "Tomorrow", DaysToDeliver: 1, ShippingPrice: 12.9, FreeShippingMinPrice: 0},
			{Name: "Next 3 Days", DaysToDeliver: 3, ShippingPrice: 6.9, FreeShippingMinPrice: 0},
			{Name: "Next 5 Days", DaysToDeliver: 5, ShippingPrice: 4.9, FreeShippingMinPrice: 35},
		},
		PaymentMethods: []PaymentMethod{
			{Name: "PayPal", IsDefault: true},
			{Name: "Stripe"},
			{Name: "Cash On Delivery"},
			{Name: "Bank Transfer"},
			{Name: "Credit Card"},
		},
		TaxRate: 0.15,
	}
}

// DeliveryOption returns the catalog entry at index.
func (c *Catalog) DeliveryOption(index int) (DeliveryOption, error) {
	if index < 0 || index >= len(c.DeliveryOptions) {
		return DeliveryOption{}, ErrUnknownDeliveryOption
	}
	return c.DeliveryOptions[index], nil
}

// ResolveShipping returns the shipping price for the option at index given
// the current items price. Shipping is waived when the option has a
// threshold and the items price reaches it.
func (c *Catalog) ResolveShipping(itemsPrice float64, index int) (float64, error) {
	opt, err := c.DeliveryOption(index)
	if err != nil {
		return 0, err
	}
	if opt.FreeShippingMinPrice > 0 && itemsPrice >= opt.FreeShippingMinPrice {
		return 0, nil
	}
	return opt.ShippingPrice, nil
}

// DefaultPaymentMethod returns the name of the method flagged as default,
// falling back to the first entry.
func (c *Catalog) DefaultPaymentMethod() string {
	for _, m := range c.PaymentMethods {
		if m.IsDefault {
			return m.Name
		}
	}
	if len(c.PaymentMethods) > 0 {
		return c.PaymentMethods[0].Name
	}
	return ""
}
