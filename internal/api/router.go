/**
 * @description
 * HTTP router setup for the admin-service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the router's auth and CORS settings.
type RouterConfig struct {
	Auth           AuthConfig
	AllowedOrigins []string
}

// NewRouter creates a new Chi router and registers the admin routes.
func NewRouter(h *Handler, roles RoleLookup, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins, credentials := corsOrigins(cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", userIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Admin service is healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))
		r.Post("/auth/phone/check", h.handlePhoneCheck)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(roles, logger))

			r.Get("/customers", h.handleListCustomers)
			r.Get("/customers/{id}", h.handleGetCustomerDetails)
			r.Get("/customers/{id}/export", h.handleExportCustomer)

			r.Get("/helpers", h.handleListHelpers)
			r.Get("/helpers/{id}", h.handleGetHelperDetails)
			r.Get("/helpers/{id}/export", h.handleExportHelper)

			r.Delete("/users/{id}/cache", h.handleInvalidateCache)
		})
	})

	return r
}

// corsOrigins defaults to every origin. Credentials are only allowed for an explicit origin list.
func corsOrigins(configured []string) ([]string, bool) {
	if len(configured) == 0 {
		return []string{"*"}, false
	}
	for _, origin := range configured {
		if origin == "*" {
			return configured, false
		}
	}
	return configured, true
}

// requestLogger logs one line per request with its status and latency.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(started)),
					zap.String("remote_ip", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
