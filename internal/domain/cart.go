package domain

import "time"

// LineItem is one cart entry: a product variant plus the quantity chosen.
// ClientID is the stable handle for update/remove and survives quantity
// edits. Two entries for the same product with different size or color are
// distinct line items.
type LineItem struct {
	ClientID     string  `json:"clientId" bson:"client_id"`
	ProductID    string  `json:"product" bson:"product_id"`
	Name         string  `json:"name" bson:"name"`
	Slug         string  `json:"slug" bson:"slug"`
	Category     string  `json:"category" bson:"category"`
	Image        string  `json:"image" bson:"image"`
	Price        float64 `json:"price" bson:"price"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	CountInStock int     `json:"countInStock" bson:"count_in_stock"`
	Size         string  `json:"size,omitempty" bson:"size,omitempty"`
	Color        string  `json:"color,omitempty" bson:"color,omitempty"`
}

// SameVariant reports whether two line items refer to the same product
// variant. This is the identity used when merging addItem calls.
func (i LineItem) SameVariant(other LineItem) bool {
	return i.ProductID == other.ProductID && i.Size == other.Size && i.Color == other.Color
}

// Cart is the aggregate the store owns. ShippingPrice stays nil until a
// delivery option is chosen; the UI renders it as unknown rather than 0.
type Cart struct {
	SessionID         string           `json:"-" bson:"session_id"`
	Items             []LineItem       `json:"items" bson:"items"`
	ItemsPrice        float64          `json:"itemsPrice" bson:"items_price"`
	ShippingPrice     *float64         `json:"shippingPrice,omitempty" bson:"shipping_price,omitempty"`
	TaxPrice          float64          `json:"taxPrice" bson:"tax_price"`
	TotalPrice        float64          `json:"totalPrice" bson:"total_price"`
	ShippingAddress   *ShippingAddress `json:"shippingAddress,omitempty" bson:"shipping_address,omitempty"`
	PaymentMethod     string           `json:"paymentMethod,omitempty" bson:"payment_method,omitempty"`
	DeliveryDateIndex *int             `json:"deliveryDateIndex,omitempty" bson:"delivery_date_index,omitempty"`
	CreatedAt         time.Time        `json:"-" bson:"created_at"`
	UpdatedAt         time.Time        `json:"-" bson:"updated_at"`
}

// FindItem returns the index of the line item with the given clientId,
// or -1 when absent.
func (c *Cart) FindItem(clientID string) int {
	for i := range c.Items {
		if c.Items[i].ClientID == clientID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart holds no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy safe to mutate while other readers hold the
// original.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append([]LineItem(nil), c.Items...)
	if c.ShippingPrice != nil {
		sp := *c.ShippingPrice
		out.ShippingPrice = &sp
	}
	if c.ShippingAddress != nil {
		addr := *c.ShippingAddress
		out.ShippingAddress = &addr
	}
	if c.DeliveryDateIndex != nil {
		idx := *c.DeliveryDateIndex
		out.DeliveryDateIndex = &idx
	}
	return &out
}
