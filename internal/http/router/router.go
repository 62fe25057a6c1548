// Package router define las rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/ringauth/internal/http/controllers"
	httperrors "github.com/dropDatabas3/ringauth/internal/http/errors"
	mw "github.com/dropDatabas3/ringauth/internal/http/middlewares"
	"github.com/dropDatabas3/ringauth/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Auth   *controllers.AuthController
	Ring   *controllers.RingController
	Health *controllers.HealthController

	// RateLimiter opcional: limita register y login por IP
	RateLimiter rate.Limiter
	// AdminToken protege /v1/ring; vacío deja las rutas abiertas
	AdminToken string
	// Metrics handler de /metrics; nil usa promhttp.Handler()
	Metrics http.Handler
}

// New arma el router completo.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"))
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	metricsHandler := d.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	if d.Auth != nil {
		r.Route("/v1/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.WithRateLimit(d.RateLimiter, mw.IPOnlyRateKey))
				r.Post("/register", d.Auth.Register)
				r.Post("/login", d.Auth.Login)
			})
			r.Get("/session", d.Auth.Session)
			r.Delete("/session", d.Auth.Logout)
		})
	}

	if d.Ring != nil {
		r.Route("/v1/ring", func(r chi.Router) {
			r.Use(mw.RequireAdminToken(d.AdminToken))
			r.Get("/nodes", d.Ring.List)
			r.Post("/nodes", d.Ring.Add)
			r.Delete("/nodes/{name}", d.Ring.Remove)
			r.Get("/locate", d.Ring.Locate)
		})
	}
	return r
}
