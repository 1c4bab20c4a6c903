// Package models - API response types and error handling.
// This file defines the outgoing API response structures.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Optional fields use omitempty to reduce response size
// - Machine-readable error codes alongside human-readable messages
// - RFC3339 timestamps
package models

import (
	"time"
)

// WeddingResponse is the public view of a wedding site.
type WeddingResponse struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	CoupleNames string     `json:"couple_names"`
	Email       string     `json:"email,omitempty"`
	WeddingDate *time.Time `json:"wedding_date,omitempty"`
	IsPremium   bool       `json:"is_premium"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExpirationResponse reports when a wedding site stops being served.
//
// DaysRemaining is -1 and ExpiresAt is omitted for premium sites.
type ExpirationResponse struct {
	WeddingID     string     `json:"wedding_id,omitempty"`
	Expired       bool       `json:"expired"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
	Status        string     `json:"status"`
	CheckedAt     time.Time  `json:"checked_at"`
}

type ListWeddingsResponse struct {
	Weddings   []WeddingResponse `json:"weddings"`
	TotalCount int               `json:"total_count"`
}

type PurgeResponse struct {
	Deleted  []string  `json:"deleted"`
	Count    int       `json:"count"`
	Complete bool      `json:"complete"` // false when the batch limit cut the sweep short
	RanAt    time.Time `json:"ran_at"`
}

type UploadResponse struct {
	ID        string    `json:"id"`
	WeddingID string    `json:"wedding_id"`
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RateLimitPolicyInfo describes one configured admission policy.
type RateLimitPolicyInfo struct {
	Name          string `json:"name"`
	MaxRequests   int    `json:"max_requests"`
	WindowSeconds int64  `json:"window_seconds"`
}

type RateLimitStatusResponse struct {
	Store         string                `json:"store"`
	TrackedKeys   int                   `json:"tracked_keys"`
	Policies      []RateLimitPolicyInfo `json:"policies"`
	ProcessShared bool                  `json:"process_shared"` // true when counts are shared across replicas
}

// ErrorResponse provides structured error information.
//
// Error Categories:
// - Validation errors: input format or constraint violations
// - Authentication errors: missing or invalid credentials
// - Rate limit errors: carry RetryAfter in seconds
// - Internal errors: server-side issues
type ErrorResponse struct {
	Error      string            `json:"error"`                 // Error type (always "error")
	Message    string            `json:"message"`               // Human-readable error description
	Code       string            `json:"code,omitempty"`        // Machine-readable error code
	Details    map[string]string `json:"details,omitempty"`     // Field-specific error details
	RetryAfter int               `json:"retry_after,omitempty"` // Seconds until a retry may succeed
	Timestamp  time.Time         `json:"timestamp"`             // Error occurrence time
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Standard HTTP Error Codes
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeValidation         = "VALIDATION_ERROR"    // 422: Input validation failed
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeUnauthorized       = "UNAUTHORIZED"        // 401: Authentication required
	ErrorCodeForbidden          = "FORBIDDEN"           // 403: Permission denied
	ErrorCodeConflict           = "CONFLICT"            // 409: Resource conflict
	ErrorCodeTooManyRequests    = "TOO_MANY_REQUESTS"   // 429: Admission control rejected the request
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewTooManyRequestsResponse builds the body sent with a 429.
func NewTooManyRequestsResponse(retryAfter int) *ErrorResponse {
	resp := NewErrorResponse("Too many requests", ErrorCodeTooManyRequests)
	resp.RetryAfter = retryAfter
	return resp
}

func (r *WeddingResponse) FromWedding(w *Wedding) {
	r.ID = w.ID
	r.Slug = w.Slug
	r.CoupleNames = w.CoupleNames
	r.Email = w.Email
	r.WeddingDate = w.WeddingDate
	r.IsPremium = w.IsPremium
	r.CreatedAt = w.CreatedAt
	r.UpdatedAt = w.UpdatedAt
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
