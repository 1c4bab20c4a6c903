package api

import (
	"log/slog"
	"net/http"

	"bind8/internal/models"
	"bind8/internal/ratelimit"

	"github.com/gorilla/mux"
)

// ListExpired lists every site past its expiration date
// GET /api/v1/admin/weddings/expired
func (h *Handlers) ListExpired(w http.ResponseWriter, r *http.Request) {
	expired, err := h.weddingService.ListExpired(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := models.ListWeddingsResponse{
		Weddings:   make([]models.WeddingResponse, 0, len(expired)),
		TotalCount: len(expired),
	}
	for _, wd := range expired {
		resp.Weddings = append(resp.Weddings, weddingResponse(wd))
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// PurgeExpired deletes expired sites
// POST /api/v1/admin/weddings/purge
func (h *Handlers) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	securityContext := GetSecurityContext(r)

	resp, err := h.weddingService.PurgeExpired(r.Context())
	if err != nil {
		slog.Error("Purge failed", "api_key", getAPIKeyName(securityContext), "error", err)
		h.writeServiceError(w, err)
		return
	}

	slog.Info("Purge requested",
		"api_key", getAPIKeyName(securityContext),
		"client_ip", ratelimit.ClientIP(r),
		"deleted", resp.Count,
		"complete", resp.Complete)
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// MarkPremium upgrades a site
// POST /api/v1/admin/weddings/{id}/premium
func (h *Handlers) MarkPremium(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	updated, err := h.weddingService.MarkPremium(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	slog.Info("Premium granted", "wedding_id", id, "api_key", getAPIKeyName(GetSecurityContext(r)))
	h.writeJSONResponse(w, http.StatusOK, weddingResponse(updated))
}

// RateLimitStatus reports the configured policies and store occupancy
// GET /api/v1/admin/ratelimit
func (h *Handlers) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.RateLimitStatusResponse{
		Store:         h.storeKind,
		Policies:      []models.RateLimitPolicyInfo{},
		ProcessShared: h.storeKind == models.RateLimitStoreRedis,
	}
	if resp.Store == "" {
		resp.Store = "disabled"
	}

	for _, p := range h.limits.Policies() {
		resp.Policies = append(resp.Policies, models.RateLimitPolicyInfo{
			Name:          p.Name,
			MaxRequests:   p.MaxRequests,
			WindowSeconds: int64(p.Window.Seconds()),
		})
	}

	if h.limitStore != nil {
		n, err := h.limitStore.Len(r.Context())
		if err != nil {
			h.writeErrorResponse(w, http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable,
				"Rate limit store is unreachable")
			return
		}
		resp.TrackedKeys = n
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}
