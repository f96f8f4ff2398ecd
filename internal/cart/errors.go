package cart

import "errors"

var (
	// ErrOutOfStock rejects adding a product with no stock left.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrInvalidQuantity rejects quantity edits outside [1, countInStock].
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrItemNotFound rejects a quantity edit for a clientId not in the cart.
	ErrItemNotFound = errors.New("item not found in cart")
	// ErrEmptyPaymentMethod rejects a blank payment method name.
	ErrEmptyPaymentMethod = errors.New("payment method is required")
)
