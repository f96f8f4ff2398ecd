package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the storefront API surface.
func NewRouter(carts *CartHandler, checkouts *CheckoutHandler, orders *OrderHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Get("/events", carts.Events)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{client_id}", carts.UpdateItem)
			r.Delete("/items/{client_id}", carts.RemoveItem)
			r.Delete("/", carts.ClearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkouts.GetState)
			r.Post("/address", checkouts.ConfirmAddress)
			r.Delete("/address", checkouts.EditAddress)
			r.Post("/payment-method", checkouts.ConfirmPayment)
			r.Delete("/payment-method", checkouts.EditPayment)
			r.Post("/delivery", checkouts.SelectDelivery)
			r.Post("/delivery/confirm", checkouts.ConfirmDelivery)
			r.Post("/place-order", checkouts.PlaceOrder)
		})

		r.Route("/orders/{order_id}", func(r chi.Router) {
			r.Get("/", orders.GetOrder)
			r.Post("/payments", orders.CreatePaymentIntent)
			r.Post("/payments/{reference}/capture", orders.CapturePayment)
		})
	})

	return r
}
