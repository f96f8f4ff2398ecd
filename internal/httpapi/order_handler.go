package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Themagician24/neo-kora/internal/order"
	"github.com/Themagician24/neo-kora/internal/payment"
	"github.com/go-chi/chi/v5"
)

// OrderReader is the slice of the order store the HTTP surface needs.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
}

// PaymentFlow is the slice of the payment service the HTTP surface needs.
type PaymentFlow interface {
	CreateIntent(ctx context.Context, orderID string) (string, error)
	Capture(ctx context.Context, orderID, reference string) (payment.Result, error)
}

type OrderHandler struct {
	orders   OrderReader
	payments PaymentFlow
	timeout  time.Duration
}

func NewOrderHandler(orders OrderReader, payments PaymentFlow, timeout time.Duration) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments, timeout: timeout}
}

type PaymentIntentResponseDTO struct {
	Reference string `json:"reference"`
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.GetOrder(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ref, err := h.payments.CreateIntent(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, PaymentIntentResponseDTO{Reference: ref})
}

func (h *OrderHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.payments.Capture(ctx, chi.URLParam(r, "order_id"), chi.URLParam(r, "reference"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
