package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// APIKey is an admin credential resolved from configuration. The raw key value
// is never stored; only its SHA-256 hex hash.
type APIKey struct {
	Name        string   `json:"name"`
	KeyHash     string   `json:"key_hash"`
	Permissions []string `json:"permissions"`
	Enabled     bool     `json:"enabled"`
}

// NewAPIKeyFromRaw builds an APIKey by hashing rawKey.
func NewAPIKeyFromRaw(name, rawKey string, permissions []string) *APIKey {
	return &APIKey{
		Name:        name,
		KeyHash:     HashAPIKey(rawKey),
		Permissions: permissions,
		Enabled:     true,
	}
}

// GenerateAPIKey produces a new random API key in the format b8_<44 url-safe base64 chars>.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 33) // 33 bytes → 44 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "b8_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey computes the SHA-256 hex digest of a raw API key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// HasPermission returns true when the key is enabled and possesses the required permission.
func (ak *APIKey) HasPermission(required string) bool {
	if !ak.Enabled {
		return false
	}
	for _, p := range ak.Permissions {
		switch p {
		case "*", "admin":
			return true
		case "write":
			if required == "read" || required == "write" {
				return true
			}
		case required:
			return true
		}
	}
	return false
}
