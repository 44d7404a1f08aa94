package rest

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meridianerp/policyflow/internal/api/rest/handlers"
	customMiddleware "github.com/meridianerp/policyflow/internal/api/rest/middleware"
	"github.com/meridianerp/policyflow/pkg/auth"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Roles recognized by the administrative endpoints. Transition gating roles
// are free-form and live in the rule set; these only guard the HTTP surface.
const (
	RolePolicyAdmin = "policy-admin"
	RoleAuditor     = "auditor"
)

// Router holds the HTTP router and dependencies
type Router struct {
	router   *chi.Mux
	logger   *logger.Logger
	handlers *handlers.Handlers
	tokens   *auth.TokenManager
	metrics  *metrics.Metrics
}

// NewRouter creates a new HTTP router
func NewRouter(log *logger.Logger, h *handlers.Handlers, tokens *auth.TokenManager, m *metrics.Metrics) *Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Metrics middleware
	r.Use(customMiddleware.Metrics(m))

	// Security middleware
	r.Use(customMiddleware.SecurityHeaders())
	r.Use(customMiddleware.RequestSizeLimit(customMiddleware.GetMaxRequestSize()))

	// CORS - Configure allowed origins from environment
	allowedOrigins := []string{"http://localhost:3000"}
	if originsEnv := os.Getenv("ALLOWED_ORIGINS"); originsEnv != "" {
		allowedOrigins = strings.Split(originsEnv, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	return &Router{
		router:   r,
		logger:   log,
		handlers: h,
		tokens:   tokens,
		metrics:  m,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	// Prometheus metrics endpoint (no auth required)
	r.router.Handle("/metrics", promhttp.Handler())

	// Health endpoints (no auth required)
	r.router.Get("/health", r.handlers.Health.Health)
	r.router.Get("/ready", r.handlers.Health.Ready)

	// API v1
	r.router.Route("/api/v1", func(router chi.Router) {
		// All API routes require a valid token
		router.Use(customMiddleware.JWTAuth(r.tokens, r.logger))

		// Rate limiting per user
		router.Use(customMiddleware.RateLimitWithConfig(100, 200, r.logger))

		// Ad-hoc policy decisions
		router.Post("/decisions", r.handlers.Decision.Decide)

		// Documents and workflow transitions
		router.Route("/documents", func(router chi.Router) {
			router.Get("/", r.handlers.Document.List)
			router.Post("/", r.handlers.Document.Create)
			router.Route("/{domain}/{number}", func(router chi.Router) {
				router.Get("/", r.handlers.Document.Get)
				router.Get("/actions", r.handlers.Document.AllowedActions)
				router.Post("/transitions", r.handlers.Document.Transition)
			})
		})

		// Rule administration
		router.Route("/rules", func(router chi.Router) {
			router.Get("/", r.handlers.Rule.List)
			router.Post("/validate", r.handlers.Rule.Validate)
			router.With(customMiddleware.RequireRole(r.logger, RolePolicyAdmin)).Put("/", r.handlers.Rule.Load)
		})

		// Audit trail
		router.With(customMiddleware.RequireRole(r.logger, RoleAuditor, RolePolicyAdmin)).
			Get("/audit-entries", r.handlers.Audit.List)
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.router
}
