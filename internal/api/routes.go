package api

import (
	"log/slog"
	"net/http"
	"time"

	"bind8/internal/models"
	"bind8/internal/ratelimit"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// SetupRoutes configures the HTTP routes for the API.
//
// Each route group gets its rate limit policy as the first subrouter
// middleware, so a rejected caller is answered with 429 before
// authentication or request validation runs. Health checks are never limited.
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.Use(recoveryMiddleware)
	router.Use(loggingMiddleware)
	for _, opt := range opts {
		opt(router)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	publicAPI := api.PathPrefix("").Subrouter()
	handlers.limit(publicAPI, ratelimit.PolicyAPI)
	publicAPI.HandleFunc("/weddings", handlers.CreateWedding).Methods("POST")
	publicAPI.HandleFunc("/weddings/{id}", handlers.GetWedding).Methods("GET")
	publicAPI.HandleFunc("/weddings/{id}/email", handlers.RegisterEmail).Methods("PUT")
	publicAPI.HandleFunc("/weddings/{id}/expiration", handlers.GetExpiration).Methods("GET")
	publicAPI.HandleFunc("/expiration/status", handlers.CheckExpiration).Methods("POST")

	uploadAPI := api.PathPrefix("").Subrouter()
	handlers.limit(uploadAPI, ratelimit.PolicyUpload)
	uploadAPI.HandleFunc("/weddings/{id}/uploads", handlers.RecordUpload).Methods("POST")

	adminAPI := api.PathPrefix("/admin").Subrouter()
	handlers.limit(adminAPI, ratelimit.PolicyAuth)
	adminAPI.Use(authMiddleware(NewKeyRing(config.Security)))
	adminAPI.Use(RequirePermission(PermissionAdmin))
	adminAPI.HandleFunc("/weddings/expired", handlers.ListExpired).Methods("GET")
	adminAPI.HandleFunc("/weddings/purge", handlers.PurgeExpired).Methods("POST")
	adminAPI.HandleFunc("/weddings/{id}/premium", handlers.MarkPremium).Methods("POST")
	adminAPI.HandleFunc("/ratelimit", handlers.RateLimitStatus).Methods("GET")

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
	})

	// A sibling subrouter whose prefix matches clears a method mismatch
	// recorded by an earlier one, so each subrouter answers 405 itself.
	for _, r := range []*mux.Router{router, api, publicAPI, uploadAPI, adminAPI} {
		r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	}

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, models.ErrorCodeBadRequest, "Method not allowed")
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
