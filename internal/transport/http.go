// Package transport assembles the HTTP surface of the storefront.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/metrics"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/report"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

// Services are the domain services the API exposes.
type Services struct {
	Catalog   catalog.Service
	Orders    order.Service
	Payments  payment.Service
	Inventory inventory.Service
	Reports   report.Service
	Users     user.Service
}

// HealthCheck reports whether the backing store is reachable. Nil means always healthy.
type HealthCheck func(ctx context.Context) error

func accessLog() func(http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

func NewRouter(svcs Services, verifier *auth.Verifier, health HealthCheck) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(accessLog())
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				log.Error().Err(err).Msg("Health check failed")
				http.Error(w, "UNAVAILABLE", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	authn := verifier.Authenticate
	router.Route("/api", func(api chi.Router) {
		storeHandler.NewProductHandler(svcs.Catalog).RegisterRoutes(api, authn)
		storeHandler.NewOrderHandler(svcs.Orders).RegisterRoutes(api, authn)
		storeHandler.NewPaymentHandler(svcs.Payments, svcs.Orders).RegisterRoutes(api, authn)
		storeHandler.NewInventoryHandler(svcs.Inventory).RegisterRoutes(api, authn)
		storeHandler.NewReportHandler(svcs.Reports).RegisterRoutes(api, authn)
		storeHandler.NewUserHandler(svcs.Users).RegisterRoutes(api, authn)
	})

	return router
}
