package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderly-bite/internal/domain/session"
)

// Login signs in with mock credentials for the requested role.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var c session.Credentials
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "role":
			var role string
			if role, err = d.Str(); err == nil {
				c.Role = session.Role(role)
			}
		case "email":
			c.Email, err = d.Str()
		case "password":
			c.Password, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "college":
			c.College, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	token, s, err := h.auth.Login(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeLogin(e, token, s)
	})
}

// Signup registers a customer and opens an OTP challenge.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var f session.Signup
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			f.Name, err = d.Str()
		case "email":
			f.Email, err = d.Str()
		case "phone":
			f.Phone, err = d.Str()
		case "college":
			f.College, err = d.Str()
		case "password":
			f.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ch, err := h.auth.Signup(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("challengeId")
		e.Str(ch.ID)
		e.FieldStart("phone")
		e.Str(ch.Phone)
		e.FieldStart("expiresAt")
		e.Str(ch.ExpiresAt.UTC().Format(time.RFC3339))
		e.ObjEnd()
	})
}

// Verify completes sign-up with the OTP and starts a session.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var id, code string
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "challengeId":
			id, err = d.Str()
		case "code":
			code, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	token, s, err := h.auth.Verify(r.Context(), id, code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeLogin(e, token, s)
	})
}

// Logout ends the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(authFrom(r.Context()).token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
