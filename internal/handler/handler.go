// Package handler exposes the canteen over HTTP/JSON.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/order"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
	"github.com/xenking/orderly-bite/internal/domain/promo"
	"github.com/xenking/orderly-bite/internal/domain/session"
)

const instrumentationName = "github.com/xenking/orderly-bite/internal/handler"

// Popular items are those with more than popularMinReviews reviews.
const (
	popularMinReviews = 70
	popularLimit      = 4
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in item responses.
	// When empty, image paths are returned as loaded.
	ImageBaseURL string

	MeterProvider metric.MeterProvider
}

// Handler serves the API, delegating to the domain services.
type Handler struct {
	catalog  *menu.Catalog
	pricer   *pricing.Pricer
	auth     *session.Authenticator
	sessions *session.Store
	orders   *order.Service

	imageBaseURL  string
	promoRejected metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	catalog *menu.Catalog,
	pricer *pricing.Pricer,
	auth *session.Authenticator,
	sessions *session.Store,
	orders *order.Service,
) (*Handler, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	rejected, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter("bite.promo.rejected",
		metric.WithDescription("Promo codes rejected when applied to a cart"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "promo rejected counter")
	}

	return &Handler{
		catalog:       catalog,
		pricer:        pricer,
		auth:          auth,
		sessions:      sessions,
		orders:        orders,
		imageBaseURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		promoRejected: rejected,
	}, nil
}

func (h *Handler) imageURL(img string) string {
	if h.imageBaseURL == "" || img == "" ||
		strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(img, "/")
}

func (h *Handler) recordPromoRejected(ctx context.Context, perr *promo.Error) {
	h.promoRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(perr.Kind)),
	))
}

type sessionKey struct{}

type authInfo struct {
	token   string
	session session.Session
}

func authFrom(ctx context.Context) authInfo {
	a, _ := ctx.Value(sessionKey{}).(authInfo)
	return a
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the bearer token into a session.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		s, err := h.sessions.Get(token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, authInfo{token: token, session: s})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole rejects sessions of any other role. It must follow
// authenticate.
func requireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := authFrom(r.Context()).session
			if err := s.Require(role); err != nil {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
