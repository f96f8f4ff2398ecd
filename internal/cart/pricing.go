package cart

import (
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/domain"
)

// recompute refreshes every derived price field. It runs after each
// mutation so the totals can never drift from the item list. Shipping is
// only resolved once a delivery option is selected; until then it stays
// nil and contributes nothing to the total.
func recompute(c *domain.Cart, cat *catalog.Catalog) {
	var items float64
	for _, it := range c.Items {
		items += it.Price * float64(it.Quantity)
	}
	c.ItemsPrice = domain.Round2(items)
	c.TaxPrice = domain.Round2(c.ItemsPrice * cat.TaxRate)

	c.ShippingPrice = nil
	if c.DeliveryDateIndex != nil {
		if sp, err := cat.ResolveShipping(c.ItemsPrice, *c.DeliveryDateIndex); err == nil {
			c.ShippingPrice = &sp
		}
	}

	var shipping float64
	if c.ShippingPrice != nil {
		shipping = *c.ShippingPrice
	}
	c.TotalPrice = domain.Round2(c.ItemsPrice + shipping + c.TaxPrice)
}
