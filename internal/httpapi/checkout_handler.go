package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/checkout"
	"github.com/Themagician24/neo-kora/internal/domain"
)

// CheckoutSequencer is the slice of the sequencer the HTTP surface needs.
type CheckoutSequencer interface {
	Progress(sessionID string) checkout.Progress
	Reset(sessionID string)
	ConfirmAddress(ctx context.Context, sessionID string, addr domain.ShippingAddress) error
	EditAddress(sessionID string)
	ConfirmPaymentMethod(ctx context.Context, sessionID, method string) error
	EditPaymentMethod(sessionID string)
	SelectDeliveryDate(ctx context.Context, sessionID string, index int) error
	ConfirmDelivery(ctx context.Context, sessionID string) error
	PlaceOrder(ctx context.Context, sessionID string) (string, error)
}

type CheckoutHandler struct {
	seq     CheckoutSequencer
	store   CartStore
	catalog *catalog.Catalog
	timeout time.Duration
}

func NewCheckoutHandler(seq CheckoutSequencer, store CartStore, cat *catalog.Catalog, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{seq: seq, store: store, catalog: cat, timeout: timeout}
}

// CheckoutStateDTO is everything the checkout page renders: cart read
// model, gate states and the static catalogs.
type CheckoutStateDTO struct {
	Cart     *domain.Cart      `json:"cart"`
	Progress checkout.Progress `json:"progress"`
	Catalog  *catalog.Catalog  `json:"catalog"`
}

type SelectDeliveryRequestDTO struct {
	Index int `json:"index"`
}

type ConfirmPaymentRequestDTO struct {
	Method string `json:"method"`
}

type PlaceOrderResponseDTO struct {
	OrderID string `json:"orderId"`
}

func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	c, err := h.store.Get(ctx, sessionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutStateDTO{
		Cart:     c,
		Progress: h.seq.Progress(sessionID),
		Catalog:  h.catalog,
	})
}

func (h *CheckoutHandler) ConfirmAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	var addr domain.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.seq.ConfirmAddress(ctx, sessionID, addr); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.seq.Progress(sessionID))
}

func (h *CheckoutHandler) EditAddress(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	h.seq.EditAddress(sessionID)
	respondJSON(w, http.StatusOK, h.seq.Progress(sessionID))
}

func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Method == "" {
		req.Method = h.catalog.DefaultPaymentMethod()
	}

	if err := h.seq.ConfirmPaymentMethod(ctx, sessionID, req.Method); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.seq.Progress(sessionID))
}

func (h *CheckoutHandler) EditPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	h.seq.EditPaymentMethod(sessionID)
	respondJSON(w, http.StatusOK, h.seq.Progress(sessionID))
}

func (h *CheckoutHandler) SelectDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	var req SelectDeliveryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.seq.SelectDeliveryDate(ctx, sessionID, req.Index); err != nil {
		respondDomainError(w, err)
		return
	}

	c, err := h.store.Get(ctx, sessionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CheckoutHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.seq.ConfirmDelivery(ctx, sessionID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.seq.Progress(sessionID))
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	orderID, err := h.seq.PlaceOrder(ctx, sessionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, PlaceOrderResponseDTO{OrderID: orderID})
}
