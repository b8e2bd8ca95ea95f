package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

// parseQuery overlays the menu query parameters present in v onto base.
func parseQuery(v url.Values, base menu.Query) (menu.Query, error) {
	q := base
	if v.Has("category") {
		q.Category = menu.Category(strings.ToLower(strings.TrimSpace(v.Get("category"))))
	}
	if v.Has("q") {
		q.Search = strings.TrimSpace(v.Get("q"))
	}
	if v.Has("price") {
		p, err := menu.ParsePriceRange(v.Get("price"))
		if err != nil {
			return base, badRequest("%v", err)
		}
		q.Price = p
	}
	if v.Has("veg") {
		veg, err := strconv.ParseBool(v.Get("veg"))
		if err != nil {
			return base, badRequest("invalid veg flag %q", v.Get("veg"))
		}
		q.VegOnly = veg
	}
	if v.Has("sort") {
		k, err := menu.ParseSortKey(v.Get("sort"))
		if err != nil {
			return base, badRequest("%v", err)
		}
		q.Sort = k
	}
	return q, nil
}

// ListMenu returns the filtered catalog. For a signed-in caller the
// parameters are layered on the session's saved filters, which are then
// updated.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	var (
		q   menu.Query
		err error
	)
	if token := bearerToken(r); token != "" {
		var s session.Session
		s, err = h.sessions.Update(token, func(s *session.Session) error {
			next, err := parseQuery(r.URL.Query(), s.Query)
			if err != nil {
				return err
			}
			s.Query = next
			return nil
		})
		q = s.Query
	} else {
		q, err = parseQuery(r.URL.Query(), menu.Query{})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := menu.Filter(h.catalog.Items(), q)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		h.encodeItems(e, items)
		e.FieldStart("found")
		e.Int(len(items))
		if len(items) == 0 {
			e.FieldStart("message")
			e.Str("no items found")
		}
		e.FieldStart("query")
		encodeQuery(e, q)
		e.ObjEnd()
	})
}

// ListCategories returns every category with its item count, "all" first.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	counts := h.catalog.CategoryCounts()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range counts {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(string(c.Category))
			e.FieldStart("name")
			e.Str(c.Category.Title())
			e.FieldStart("count")
			e.Int(c.Count)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

// ListPopular returns the quick-order items of the home screen.
func (h *Handler) ListPopular(w http.ResponseWriter, _ *http.Request) {
	items := h.catalog.Popular(popularMinReviews, popularLimit)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeItems(e, items)
	})
}

// GetMenuItem returns a single catalog item.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.catalog.Get(chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeItem(e, it)
	})
}
