// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Fail fast with clear error messages for invalid input
// - Normalize input (trim, lowercase slugs) before validation
// - Report every offending field at once via ValidationErrors
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// dateLayouts are accepted for every date field, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses an RFC3339 timestamp or a YYYY-MM-DD calendar date (UTC).
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q: expected RFC3339 or YYYY-MM-DD", value)
}

// ValidationErrors maps field names to problems. It implements error so
// callers can return it directly.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// CreateWeddingRequest creates a free wedding site.
type CreateWeddingRequest struct {
	Slug        string `json:"slug"`
	CoupleNames string `json:"couple_names"`
	Email       string `json:"email,omitempty"`
	WeddingDate string `json:"wedding_date,omitempty"` // RFC3339 or YYYY-MM-DD
}

func (r *CreateWeddingRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.CoupleNames = strings.TrimSpace(r.CoupleNames)
	r.Email = strings.TrimSpace(r.Email)
	r.WeddingDate = strings.TrimSpace(r.WeddingDate)
}

func (r *CreateWeddingRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Slug == "" {
		errs["slug"] = "required"
	} else if !slugPattern.MatchString(r.Slug) {
		errs["slug"] = "must be lowercase letters, digits and single hyphens"
	}
	if r.CoupleNames == "" {
		errs["couple_names"] = "required"
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		errs["email"] = "must be an email address"
	}
	if r.WeddingDate != "" {
		if _, err := ParseDate(r.WeddingDate); err != nil {
			errs["wedding_date"] = err.Error()
		}
	}
	return errs.orNil()
}

// RegisterEmailRequest attaches an email to an unregistered site.
type RegisterEmailRequest struct {
	Email string `json:"email"`
}

func (r *RegisterEmailRequest) Validate() error {
	errs := ValidationErrors{}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		errs["email"] = "required"
	} else if !strings.Contains(email, "@") {
		errs["email"] = "must be an email address"
	}
	return errs.orNil()
}

// ExpirationCheckRequest is a stateless expiration query for a site
// described inline rather than looked up by ID.
type ExpirationCheckRequest struct {
	IsPremium   bool   `json:"is_premium"`
	Email       string `json:"email,omitempty"`
	WeddingDate string `json:"wedding_date,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// UploadRequest carries metadata for a file already accepted by object storage.
type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// MaxUploadSize bounds a single upload record.
const MaxUploadSize = 25 << 20

func (r *UploadRequest) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(r.FileName) == "" {
		errs["file_name"] = "required"
	} else if strings.ContainsAny(r.FileName, `/\`) {
		errs["file_name"] = "must not contain path separators"
	}
	if r.Size <= 0 {
		errs["size"] = "must be positive"
	} else if r.Size > MaxUploadSize {
		errs["size"] = fmt.Sprintf("must not exceed %d bytes", MaxUploadSize)
	}
	if r.ContentType != "" && !strings.Contains(r.ContentType, "/") {
		errs["content_type"] = "must be a MIME type"
	}
	return errs.orNil()
}
