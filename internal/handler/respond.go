package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/orderly-bite/internal/domain/cart"
	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/navigation"
	"github.com/xenking/orderly-bite/internal/domain/order"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
	"github.com/xenking/orderly-bite/internal/domain/promo"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

const maxBodySize = 1 << 20

// badRequestError marks malformed input.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeBody reads a JSON object from the request body, calling fn for each
// field. An empty body is accepted when optional is set.
func decodeBody(r *http.Request, optional bool, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return nil
		}
		return badRequest("request body required")
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		var bad *badRequestError
		if errors.As(err, &bad) {
			return bad
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		encodeErrorFields(e, status, msg)
		e.ObjEnd()
	})
}

func encodeErrorFields(e *jx.Encoder, status int, msg string) {
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
}

func encodeAmount(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// fail maps err to a response. Unexpected errors are logged and hidden
// behind a generic 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		perr  *promo.Error
		bad   *badRequestError
		qty   *pricing.InvalidQuantityError
		trans *order.InvalidTransitionError
		move  *navigation.InvalidMoveError
	)
	switch {
	case errors.As(err, &perr):
		writePromoError(w, perr)
	case errors.As(err, &bad),
		errors.As(err, &qty),
		errors.Is(err, session.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrUnauthorized),
		errors.Is(err, session.ErrInvalidOTP):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, menu.ErrItemNotFound),
		errors.Is(err, cart.ErrUnknownItem),
		errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &trans),
		errors.As(err, &move),
		errors.Is(err, session.ErrCheckoutInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrItemUnavailable),
		errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, order.ErrEmptyOrder):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrPaymentTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nobody reads the response.
		zctx.From(r.Context()).Debug("Request cancelled", zap.Error(err))
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writePromoError(w http.ResponseWriter, perr *promo.Error) {
	status := http.StatusUnprocessableEntity
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		encodeErrorFields(e, status, perr.Error())
		e.FieldStart("kind")
		e.Str(string(perr.Kind))
		if perr.Kind == promo.KindMinimumNotMet {
			e.FieldStart("threshold")
			encodeAmount(e, perr.Threshold)
		}
		e.ObjEnd()
	})
}
