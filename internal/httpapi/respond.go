package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Themagician24/neo-kora/internal/cart"
	"github.com/Themagician24/neo-kora/internal/cartrepo"
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/checkout"
	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/Themagician24/neo-kora/internal/order"
	"github.com/Themagician24/neo-kora/internal/payment"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{Error: http.StatusText(status), Code: code, Details: details})
}

// respondDomainError maps every recoverable error the core can return to
// its HTTP shape. Unmapped errors are server faults.
func respondDomainError(w http.ResponseWriter, err error) {
	var addrErr *domain.AddressError
	switch {
	case errors.As(err, &addrErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Code:    "invalid_address",
			Details: addrErr.Error(),
			Fields:  addrErr.Missing,
		})
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, cart.ErrEmptyPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	case errors.Is(err, catalog.ErrUnknownDeliveryOption):
		respondError(w, http.StatusBadRequest, "unknown_delivery_option", err.Error())
	case errors.Is(err, checkout.ErrGateNotReady):
		respondError(w, http.StatusConflict, "step_not_ready", err.Error())
	case errors.Is(err, checkout.ErrOrderInFlight), errors.Is(err, payment.ErrCaptureInFlight):
		respondError(w, http.StatusConflict, "request_in_flight", err.Error())
	case errors.Is(err, checkout.ErrCartNotReady):
		respondError(w, http.StatusConflict, "cart_not_ready", err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, cartrepo.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", err.Error())
	case errors.Is(err, payment.ErrUnknownProvider):
		respondError(w, http.StatusBadRequest, "unknown_provider", err.Error())
	case errors.Is(err, payment.ErrPaymentFailed):
		respondError(w, http.StatusPaymentRequired, "payment_failed", err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
