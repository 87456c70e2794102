package api

import (
	"net/http"

	"github.com/Togather-Foundation/eventhub/internal/api/handlers"
	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are the services the router mounts. The caller owns their
// lifecycle, including stopping Limiter.
type Dependencies struct {
	Accounts      *handlers.AuthHandler
	Events        *handlers.EventsHandler
	Registrations *handlers.RegistrationsHandler
	Admin         *handlers.AdminHandler
	Health        *handlers.HealthChecker
	Tokens        *auth.JWTManager
	Limiter       *middleware.RateLimiter
	Build         BuildInfo
}

// NewRouter wires every route and wraps the mux in the global middleware
// stack.
func NewRouter(cfg config.Config, logger zerolog.Logger, deps Dependencies) http.Handler {
	env := cfg.Environment

	limit := func(tier middleware.RateLimitTier) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return middleware.WithRateLimitTierHandler(tier)(deps.Limiter.Middleware(next))
		}
	}
	public := limit(middleware.TierPublic)
	login := limit(middleware.TierLogin)
	authenticated := func(next http.Handler) http.Handler {
		return middleware.Authenticate(deps.Tokens, env)(limit(middleware.TierAuthenticated)(next))
	}
	adminOnly := func(next http.Handler) http.Handler {
		return authenticated(middleware.RequireRole(env, auth.RoleAdmin)(next))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.Health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Health.Readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /version", VersionHandler(deps.Build))
	mux.Handle("GET /openapi.json", OpenAPIHandler())

	mux.Handle("POST /auth/register", login(http.HandlerFunc(deps.Accounts.Register)))
	mux.Handle("POST /auth/login", login(http.HandlerFunc(deps.Accounts.Login)))
	mux.Handle("GET /auth/me", authenticated(http.HandlerFunc(deps.Accounts.Me)))

	mux.Handle("GET /events", public(http.HandlerFunc(deps.Events.List)))
	mux.Handle("POST /events", authenticated(http.HandlerFunc(deps.Events.Create)))
	mux.Handle("GET /events/{id}", public(http.HandlerFunc(deps.Events.Get)))
	mux.Handle("PUT /events/{id}", authenticated(http.HandlerFunc(deps.Events.Update)))
	mux.Handle("DELETE /events/{id}", authenticated(http.HandlerFunc(deps.Events.Delete)))

	mux.Handle("POST /events/{id}/register", authenticated(http.HandlerFunc(deps.Registrations.Register)))
	mux.Handle("DELETE /events/{id}/register", authenticated(http.HandlerFunc(deps.Registrations.Cancel)))
	mux.Handle("GET /events/{id}/registrations", authenticated(http.HandlerFunc(deps.Registrations.List)))

	mux.Handle("GET /admin/stats", adminOnly(http.HandlerFunc(deps.Admin.Stats)))
	mux.Handle("GET /admin/users", adminOnly(http.HandlerFunc(deps.Admin.ListUsers)))
	mux.Handle("PUT /admin/users/{id}/role", adminOnly(http.HandlerFunc(deps.Admin.UpdateRole)))
	mux.Handle("DELETE /admin/users/{id}", adminOnly(http.HandlerFunc(deps.Admin.DeleteUser)))

	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}
