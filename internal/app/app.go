// Package app wires the API server together.
package app

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orderly-bite/db"
	"github.com/xenking/orderly-bite/internal/domain/menu"
	"github.com/xenking/orderly-bite/internal/domain/order"
	"github.com/xenking/orderly-bite/internal/domain/pricing"
	"github.com/xenking/orderly-bite/internal/domain/promo"
	"github.com/xenking/orderly-bite/internal/domain/session"
	"github.com/xenking/orderly-bite/internal/handler"
	"github.com/xenking/orderly-bite/internal/storage/memory"
	"github.com/xenking/orderly-bite/internal/storage/postgres"
	"github.com/xenking/orderly-bite/pkg/health"
	"github.com/xenking/orderly-bite/pkg/httpmiddleware"
)

const serviceName = "orderly-bite"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	catalog, err := loadCatalog(cfg.MenuFile)
	if err != nil {
		return errors.Wrap(err, "load menu")
	}
	promos, err := loadPromos(cfg.PromoFile)
	if err != nil {
		return errors.Wrap(err, "load promos")
	}
	lg.Info("Reference data loaded",
		zap.Int("menu_items", catalog.Len()),
		zap.Int("promo_codes", promos.Len()),
	)

	healthSvc := health.New()
	healthSvc.AddLiveness(health.Check{
		Name:    "goroutines",
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})
	healthSvc.AddReadiness(health.Check{
		Name: "catalog",
		Func: health.MinCountCheck("menu items", 1, catalog.Len),
	})

	// Orders live in PostgreSQL when configured, in memory otherwise.
	var orderRepo order.Repository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadiness(health.Check{
			Name:    "postgres",
			Timeout: 5 * time.Second,
			Func:    health.PingCheck(pool),
		})
		orderRepo = postgres.NewOrderRepository(pool)
	} else {
		lg.Warn("No database configured, orders are kept in memory")
		orderRepo = memory.NewOrderRepository()
	}

	if cfg.SessionPepper == "" {
		lg.Warn("No session pepper configured, sessions will not survive a restart")
	}
	svc, err := newServices(cfg, catalog, promos, orderRepo, m)
	if err != nil {
		return err
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)
	if cfg.SessionTTL > 0 {
		go pruneSessions(ctx, lg, svc.sessions, cfg.SessionTTL)
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Checkout holds the request open for the simulated payment.
		WriteTimeout:   cfg.Simulation.PaymentTimeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        newHTTPHandler(ctx, cfg, m, svc.api, healthSvc),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

type services struct {
	sessions *session.Store
	api      *handler.Handler
}

// newServices builds the domain services and the API handler on top of
// the loaded reference data and order storage.
func newServices(
	cfg *Config,
	catalog *menu.Catalog,
	promos *promo.Table,
	orderRepo order.Repository,
	tel httpmiddleware.Telemetry,
) (*services, error) {
	fee, err := cfg.Pricing.Fee()
	if err != nil {
		return nil, err
	}
	pricer := pricing.New(promos)
	pricer.DeliveryFee = fee
	pricer.PrepBuffer = cfg.Pricing.PrepBuffer

	pepper, err := sessionPepper(cfg.SessionPepper)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(pepper, cfg.SessionTTL)
	auth := session.NewAuthenticator(sessions, session.AuthOptions{
		AuthDelay: cfg.Simulation.AuthDelay,
		OTPDelay:  cfg.Simulation.OTPDelay,
	})

	orders, err := order.NewService(orderRepo, order.Options{
		PaymentDelay:   cfg.Simulation.PaymentDelay,
		PaymentTimeout: cfg.Simulation.PaymentTimeout,
		MeterProvider:  tel.MeterProvider(),
		TracerProvider: tel.TracerProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	api, err := handler.New(
		handler.Config{
			ImageBaseURL:  cfg.ImageBaseURL,
			MeterProvider: tel.MeterProvider(),
		},
		catalog,
		pricer,
		auth,
		sessions,
		orders,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}
	return &services{sessions: sessions, api: api}, nil
}

// newHTTPHandler mounts the health endpoints and the API routes behind the
// shared middleware stack.
func newHTTPHandler(
	ctx context.Context,
	cfg *Config,
	tel httpmiddleware.Telemetry,
	api *handler.Handler,
	healthSvc *health.Health,
) http.Handler {
	routes := api.Router(
		httpmiddleware.LogRequests(handler.RoutePattern),
		httpmiddleware.RouteLabel(handler.RoutePattern),
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", routes)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Authorization", "Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, tel),
	)
}

// loadCatalog reads the menu from path, or the embedded seed when empty.
func loadCatalog(path string) (*menu.Catalog, error) {
	data := db.Menu
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read menu file")
		}
	}
	return menu.DecodeCatalog(data)
}

// loadPromos reads the promo table from path, or the built-in table when
// empty.
func loadPromos(path string) (*promo.Table, error) {
	if path == "" {
		return promo.Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read promo file")
	}
	return promo.DecodeTable(data)
}

func sessionPepper(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	pepper := make([]byte, 32)
	if _, err := rand.Read(pepper); err != nil {
		return nil, errors.Wrap(err, "generate session pepper")
	}
	return pepper, nil
}

func pruneSessions(ctx context.Context, lg *zap.Logger, sessions *session.Store, ttl time.Duration) {
	t := time.NewTicker(ttl)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Prune(); n > 0 {
				lg.Debug("Pruned idle sessions", zap.Int("count", n), zap.Int("live", sessions.Len()))
			}
		}
	}
}
