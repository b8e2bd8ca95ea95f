package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/orderly-bite/internal/domain/session"
	"github.com/xenking/orderly-bite/pkg/httpmiddleware"
)

// Router builds the /api routes. Middlewares in routed run inside the
// router, where RoutePattern is available once the handler returns.
func (h *Handler) Router(routed ...httpmiddleware.Middleware) *chi.Mux {
	r := chi.NewRouter()
	for _, m := range routed {
		r.Use(m)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/menu", func(r chi.Router) {
			r.Get("/", h.ListMenu)
			r.Get("/categories", h.ListCategories)
			r.Get("/popular", h.ListPopular)
			r.Get("/{itemID}", h.GetMenuItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/signup", h.Signup)
			r.Post("/verify", h.Verify)
			r.With(h.authenticate).Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/session", h.GetSession)
			r.Post("/session/navigate", h.Navigate)
			r.Post("/session/back", h.Back)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(session.RoleUser))

				r.Get("/cart", h.GetCart)
				r.Put("/cart/items/{itemID}", h.SetCartItem)
				r.Post("/cart/promo", h.ApplyPromo)
				r.Delete("/cart/promo", h.RemovePromo)

				r.Post("/checkout", h.Checkout)

				r.Get("/orders", h.ListOrders)
				r.Post("/orders/{orderID}/cancel", h.CancelOrder)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(session.RoleAdmin))

				r.Get("/orders", h.AdminListOrders)
				r.Post("/orders/{orderID}/status", h.AdminUpdateStatus)
				r.Get("/stats", h.AdminStats)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}

// RoutePattern returns the chi route pattern that served r.
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
