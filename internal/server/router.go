package server

import (
	"net/http"

	"github.com/controllernode/versions/internal/handler"
	"github.com/controllernode/versions/internal/ratelimit"
	"github.com/controllernode/versions/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	// VersionsPath is where the firmware version document is served.
	VersionsPath   string
	AllowedOrigins []string
	// Tracing wraps every request in an OpenTelemetry server span.
	Tracing bool
}

// NewRouter creates a new HTTP router with all routes registered.
// The rate limiter applies only to the version document; a nil limiter
// disables it.
func NewRouter(h *handler.Handler, limiter *ratelimit.Limiter, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	if opts.Tracing {
		r.Use(telemetry.Middleware)
	}
	r.Use(RequestLogger)
	r.Use(Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         86400,
		}))
	}

	r.Use(middleware.GetHead)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Health check
	r.Get("/health", h.Health)
	r.Get("/api/server-info", h.GetServerInfo)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter))
		r.Get(opts.VersionsPath, h.GetSoftwareVersions)
	})

	return r
}
