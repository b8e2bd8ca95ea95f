package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/orderly-bite/internal/domain/order"
)

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), authFrom(r.Context()).session.User.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}

// CancelOrder cancels one of the caller's pending orders.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := authFrom(r.Context()).session.User.ID
	o, err := h.orders.Cancel(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// AdminListOrders lists every order, optionally filtered by status and a
// search over order ID and customer name.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	var f order.Filter
	v := r.URL.Query()
	if raw := v.Get("status"); raw != "" && raw != "all" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			h.fail(w, r, badRequest("%v", err))
			return
		}
		f.Status = st
	}
	f.Search = v.Get("q")

	orders, err := h.orders.ListAll(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}

// AdminUpdateStatus sets an order's status. Without a status in the body
// the order advances to its next stage.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeBody(r, true, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		raw, err = d.Str()
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "orderID")
	var o *order.Order
	if raw == "" {
		o, err = h.orders.Advance(r.Context(), id)
	} else {
		st, perr := order.ParseStatus(raw)
		if perr != nil {
			h.fail(w, r, badRequest("%v", perr))
			return
		}
		o, err = h.orders.UpdateStatus(r.Context(), id, st)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// AdminStats returns today's dashboard figures.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.orders.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeStats(e, st)
	})
}
