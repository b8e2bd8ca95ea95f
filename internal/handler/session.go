package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/orderly-bite/internal/domain/navigation"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

// GetSession returns the caller's session view.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := authFrom(r.Context()).session
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, s)
	})
}

// Navigate moves the session to another screen.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeBody(r, false, func(d *jx.Decoder, key string) error {
		if key != "screen" {
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
	to, err := navigation.Parse(raw)
	if err != nil {
		h.fail(w, r, badRequest("%v", err))
		return
	}

	s, err := h.sessions.Update(authFrom(r.Context()).token, func(s *session.Session) error {
		return s.Navigate(to)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, s)
	})
}

// Back applies the back action to the current screen.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Update(authFrom(r.Context()).token, func(s *session.Session) error {
		s.Back()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, s)
	})
}
