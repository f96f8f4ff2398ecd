package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryOption_BoundsChecked(t *testing.T) {
	cat := Default()

	opt, err := cat.DeliveryOption(0)
	require.NoError(t, err)
	assert.Equal(t, "Tomorrow", opt.Name)
	assert.Equal(t, 1, opt.DaysToDeliver)

	_, err = cat.DeliveryOption(-1)
	assert.ErrorIs(t, err, ErrUnknownDeliveryOption)

	_, err = cat.DeliveryOption(len(cat.DeliveryOptions))
	assert.ErrorIs(t, err, ErrUnknownDeliveryOption)
}

func TestResolveShipping(t *testing.T) {
	cat := Default()

	tests := []struct {
		name       string
		itemsPrice float64
		index      int
		want       float64
	}{
		{"fastest option always charges", 500, 0, 12.9},
		{"middle option always charges", 500, 1, 6.9},
		{"slow option below threshold", 34.99, 2, 4.9},
		{"slow option at threshold is free", 35, 2, 0},
		{"slow option above threshold is free", 100, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cat.ResolveShipping(tt.itemsPrice, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cat.ResolveShipping(10, 99)
	assert.ErrorIs(t, err, ErrUnknownDeliveryOption)
}

func TestResolveShipping_ZeroThresholdNeverWaives(t *testing.T) {
	cat := &Catalog{
		DeliveryOptions: []DeliveryOption{
			{Name: "Standard", DaysToDeliver: 2, ShippingPrice: 3.5, FreeShippingMinPrice: 0},
		},
	}

	got, err := cat.ResolveShipping(1_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)
}

func TestDefaultPaymentMethod(t *testing.T) {
	assert.Equal(t, "PayPal", Default().DefaultPaymentMethod())

	noDefault := &Catalog{PaymentMethods: []PaymentMethod{{Name: "Stripe"}, {Name: "Cash On Delivery"}}}
	assert.Equal(t, "Stripe", noDefault.DefaultPaymentMethod())

	assert.Equal(t, "", (&Catalog{}).DefaultPaymentMethod())
}
