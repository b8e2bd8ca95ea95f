package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/domain/order"
	"github.com/xenking/orderly-bite/internal/domain/promo"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, s session.Session) {
	sum, err := s.Cart.Summary(h.pricer, h.catalog)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeCart(e, sum)
	})
}

// GetCart returns the cart lines with live pricing.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, authFrom(r.Context()).session)
}

// SetCartItem sets the quantity of an item; zero removes it.
func (h *Handler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	qty, set := 0, false
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		qty, err = d.Int()
		set = err == nil
		return err
	})
	if err == nil && !set {
		err = badRequest("quantity required")
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "itemID")
	s, err := h.sessions.Update(authFrom(r.Context()).token, func(s *session.Session) error {
		next, err := s.Cart.SetQuantity(h.catalog, id, qty)
		if err != nil {
			return err
		}
		s.Cart = next
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, s)
}

// ApplyPromo validates a promo code against the cart and attaches it.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = d.Str()
		return err
	})
	if err == nil && promo.Normalize(code) == "" {
		err = badRequest("code required")
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.sessions.Update(authFrom(r.Context()).token, func(s *session.Session) error {
		next, _, err := s.Cart.ApplyPromo(h.pricer, h.catalog, code)
		if err != nil {
			return err
		}
		s.Cart = next
		return nil
	})
	if err != nil {
		var perr *promo.Error
		if errors.As(err, &perr) {
			h.recordPromoRejected(r.Context(), perr)
		}
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, s)
}

// RemovePromo detaches the promo code.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Update(authFrom(r.Context()).token, func(s *session.Session) error {
		s.Cart = s.Cart.RemovePromo()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, s)
}

// Checkout snapshots the cart, runs the simulated payment and places the
// order. Once the order is stored the paid lines leave the cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeBody(r, true, func(d *jx.Decoder, key string) error {
		if key != "paymentMethod" {
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
	method, err := order.ParsePaymentMethod(raw)
	if err != nil {
		h.fail(w, r, badRequest("%v", err))
		return
	}

	ctx := r.Context()
	token := authFrom(ctx).token

	var snap cart.Snapshot
	s, err := h.sessions.Update(token, func(s *session.Session) error {
		var err error
		snap, err = s.BeginCheckout(h.pricer, h.catalog)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Payment is slow, so it runs without holding the session. Other
	// checkouts for it are refused until EndCheckout.
	o, err := h.orders.Checkout(ctx, order.CheckoutRequest{
		UserID:        s.User.ID,
		Customer:      s.User.Name,
		Snapshot:      snap,
		PaymentMethod: method,
	})
	if _, uerr := h.sessions.Update(token, func(s *session.Session) error {
		s.EndCheckout(snap, err == nil)
		return nil
	}); uerr != nil {
		zctx.From(ctx).Warn("End checkout",
			zap.Bool("placed", err == nil),
			zap.Error(uerr),
		)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
