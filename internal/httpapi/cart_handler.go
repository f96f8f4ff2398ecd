package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartStore is the slice of the cart store the HTTP surface needs.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item domain.LineItem, quantity int) (string, error)
	UpdateItem(ctx context.Context, sessionID, clientID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, clientID string) error
	Clear(ctx context.Context, sessionID string) error
	Subscribe(sessionID string, fn func(domain.Cart)) func()
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(store CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{store: store, timeout: timeout}
}

type AddItemRequestDTO struct {
	Item     domain.LineItem `json:"item"`
	Quantity int             `json:"quantity"`
}

type AddItemResponseDTO struct {
	ClientID string       `json:"clientId"`
	Cart     *domain.Cart `json:"cart"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	c, err := h.store.Get(ctx, sessionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Item.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "item.product is required")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	clientID, err := h.store.AddItem(ctx, sessionID, req.Item, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	c, err := h.store.Get(ctx, sessionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, AddItemResponseDTO{ClientID: clientID, Cart: c})
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	clientID := chi.URLParam(r, "client_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.store.UpdateItem(ctx, sessionID, clientID, req.Quantity); err != nil {
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

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	clientID := chi.URLParam(r, "client_id")

	if err := h.store.RemoveItem(ctx, sessionID, clientID); err != nil {
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

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.store.Clear(ctx, sessionID); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Events streams the cart read model as server-sent events, one event per
// mutation. The header cart button and the sidebar listen here so every
// surface re-renders from the same state.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := make(chan domain.Cart, 8)
	unsubscribe := h.store.Subscribe(sessionID, func(c domain.Cart) {
		select {
		case updates <- c:
		default: // drop when the client lags; the next event carries full state
		}
	})
	defer unsubscribe()

	// Initial state so a fresh listener renders without waiting for a
	// mutation.
	if c, err := h.store.Get(r.Context(), sessionID); err == nil {
		writeEvent(w, *c)
		flusher.Flush()
	}

	for {
		select {
		case c := <-updates:
			writeEvent(w, c)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, c domain.Cart) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
}
