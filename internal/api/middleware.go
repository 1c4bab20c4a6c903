package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"bind8/internal/models"
	"bind8/internal/ratelimit"

	"github.com/gorilla/mux"
)

// Permission represents the different permission levels
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// BootstrapKeyName names the key built from security.bootstrap_key.
const BootstrapKeyName = "bootstrap"

// KeyRing resolves raw bearer tokens to configured API keys by hash.
type KeyRing struct {
	byHash map[string]*models.APIKey
}

// NewKeyRing indexes the configured keys plus the bootstrap key, which is
// granted admin. An empty ring authenticates nobody.
func NewKeyRing(cfg models.SecurityConfig) *KeyRing {
	kr := &KeyRing{byHash: make(map[string]*models.APIKey, len(cfg.APIKeys)+1)}
	for _, k := range cfg.APIKeys {
		kr.byHash[strings.ToLower(k.KeyHash)] = &models.APIKey{
			Name:        k.Name,
			KeyHash:     strings.ToLower(k.KeyHash),
			Permissions: k.Permissions,
			Enabled:     k.Enabled,
		}
	}
	if cfg.BootstrapKey != "" {
		key := models.NewAPIKeyFromRaw(BootstrapKeyName, cfg.BootstrapKey, []string{string(PermissionAdmin)})
		kr.byHash[key.KeyHash] = key
	}
	return kr
}

// Lookup returns the enabled key matching rawKey.
func (kr *KeyRing) Lookup(rawKey string) (*models.APIKey, bool) {
	if kr == nil || rawKey == "" {
		return nil, false
	}
	key, ok := kr.byHash[models.HashAPIKey(rawKey)]
	if !ok || !key.Enabled {
		return nil, false
	}
	return key, true
}

// Len returns the number of configured keys, enabled or not.
func (kr *KeyRing) Len() int {
	if kr == nil {
		return 0
	}
	return len(kr.byHash)
}

// SecurityContext represents the security information for a request
type SecurityContext struct {
	APIKey      *models.APIKey
	Permissions []string
}

// HasPermission checks if the security context has the required permission
func (sc *SecurityContext) HasPermission(required Permission) bool {
	if sc == nil || sc.APIKey == nil {
		return false
	}
	return sc.APIKey.HasPermission(string(required))
}

// GetSecurityContext extracts security context from request context
func GetSecurityContext(r *http.Request) *SecurityContext {
	if apiKey, ok := r.Context().Value(apiKeyContextKey).(*models.APIKey); ok {
		return &SecurityContext{
			APIKey:      apiKey,
			Permissions: apiKey.Permissions,
		}
	}
	return nil
}

// authMiddleware handles API key authentication against the key ring.
func authMiddleware(keys *KeyRing) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization required")
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				writeError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid authorization format")
				return
			}

			key, ok := keys.Lookup(strings.TrimSpace(authHeader[len(prefix):]))
			if !ok {
				slog.Warn("Rejected API key", "client_ip", ratelimit.ClientIP(r), "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission creates middleware that enforces a specific permission
func RequirePermission(required Permission) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			securityContext := GetSecurityContext(r)

			// Check for nil security context or insufficient permissions
			if securityContext == nil || !securityContext.HasPermission(required) {
				writeError(w, http.StatusForbidden, models.ErrorCodeForbidden,
					"Insufficient permissions for this operation")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getAPIKeyName safely extracts the API key name for logging
func getAPIKeyName(securityContext *SecurityContext) string {
	if securityContext == nil || securityContext.APIKey == nil {
		return "anonymous"
	}
	if securityContext.APIKey.Name != "" {
		return securityContext.APIKey.Name
	}
	return "unnamed-key"
}
