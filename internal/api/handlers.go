package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bind8/internal/models"
	"bind8/internal/ratelimit"
	"bind8/internal/storage"
	"bind8/internal/version"
	"bind8/internal/wedding"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds JSON request bodies. Upload bodies carry metadata only.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP handlers for the bind8 API
type Handlers struct {
	weddingService wedding.ServiceInterface
	storage        storage.Storage

	limits     ratelimit.Set
	limitStore ratelimit.Store
	storeKind  string
}

// HandlerOption configures optional dependencies for Handlers.
type HandlerOption func(*Handlers)

// WithStorage provides direct storage access for health checks.
func WithStorage(s storage.Storage) HandlerOption {
	return func(h *Handlers) {
		h.storage = s
	}
}

// WithRateLimits enables admission control. kind names the backing store
// ("memory" or "redis") for the status endpoint.
func WithRateLimits(set ratelimit.Set, store ratelimit.Store, kind string) HandlerOption {
	return func(h *Handlers) {
		h.limits = set
		h.limitStore = store
		h.storeKind = kind
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(weddingService wedding.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		weddingService: weddingService,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// limit installs the named policy on router if it is configured.
func (h *Handlers) limit(router *mux.Router, policy string) {
	if l, ok := h.limits[policy]; ok {
		router.Use(ratelimit.Middleware(l))
	}
}

// CreateWedding handles site creation
// POST /api/v1/weddings
func (h *Handlers) CreateWedding(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWeddingRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	created, err := h.weddingService.CreateWedding(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, weddingResponse(created))
}

// GetWedding handles site lookup
// GET /api/v1/weddings/{id}
func (h *Handlers) GetWedding(w http.ResponseWriter, r *http.Request) {
	found, err := h.weddingService.GetWedding(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, weddingResponse(found))
}

// RegisterEmail handles email registration for a trial site
// PUT /api/v1/weddings/{id}/email
func (h *Handlers) RegisterEmail(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterEmailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.weddingService.RegisterEmail(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, weddingResponse(updated))
}

// GetExpiration reports a stored site's expiration state
// GET /api/v1/weddings/{id}/expiration
func (h *Handlers) GetExpiration(w http.ResponseWriter, r *http.Request) {
	resp, err := h.weddingService.Expiration(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// CheckExpiration evaluates an inline site description
// POST /api/v1/expiration/status
func (h *Handlers) CheckExpiration(w http.ResponseWriter, r *http.Request) {
	var req models.ExpirationCheckRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.weddingService.CheckExpiration(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// RecordUpload stores upload metadata for a live site
// POST /api/v1/weddings/{id}/uploads
func (h *Handlers) RecordUpload(w http.ResponseWriter, r *http.Request) {
	var req models.UploadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.weddingService.RecordUpload(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, models.UploadResponse{
		ID:        u.ID,
		WeddingID: u.WeddingID,
		FileName:  u.FileName,
		Size:      u.Size,
		CreatedAt: u.CreatedAt,
	})
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.GetInfo().Version

	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			slog.Warn("Storage health check failed", "error", err)
			response.Status = models.StatusUnhealthy
			response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
		} else {
			response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
		}
	}

	if h.limitStore != nil {
		status, msg := models.StatusHealthy, "Rate limit store is operational"
		if err := h.limitStore.Ping(r.Context()); err != nil {
			slog.Warn("Rate limit store health check failed", "error", err)
			// Requests are still admitted when the store is down.
			status, msg = models.StatusDegraded, "Rate limit store is unreachable; admitting all requests"
			if response.Status == models.StatusHealthy {
				response.Status = models.StatusDegraded
			}
		}
		response.AddComponent("ratelimit", status, msg)
	}

	statusCode := http.StatusOK
	if response.Status == models.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSONResponse(w, statusCode, response)
}

func weddingResponse(w *models.Wedding) models.WeddingResponse {
	var resp models.WeddingResponse
	resp.FromWedding(w)
	return resp
}

// decodeJSON reads a bounded JSON body into dst, answering 400 on failure.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP responses. Anything that is
// not a *wedding.ServiceError is reported as a 500 without leaking details.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var se *wedding.ServiceError
	if !errors.As(err, &se) {
		slog.Error("Unhandled service error", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
		return
	}

	if se.StatusCode >= http.StatusInternalServerError {
		slog.Error("Service error", "code", se.Code, "error", se)
	}
	resp := models.NewErrorResponse(se.Message, se.Code)
	resp.Details = se.Details
	h.writeJSONResponse(w, se.StatusCode, resp)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeError(w, statusCode, errorCode, message)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to tell the client.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, models.NewErrorResponse(message, errorCode))
}
