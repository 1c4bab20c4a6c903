// Package models - Wedding site domain model.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Wedding is a couple's wedding site. Free sites expire; premium sites never do.
type Wedding struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	CoupleNames string     `json:"couple_names"`
	Email       string     `json:"email,omitempty"` // empty until the couple registers
	WeddingDate *time.Time `json:"wedding_date,omitempty"`
	IsPremium   bool       `json:"is_premium"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Upload records metadata for a file the couple pushed to object storage.
type Upload struct {
	ID          string    `json:"id"`
	WeddingID   string    `json:"wedding_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewWedding creates an unregistered, free wedding site.
func NewWedding(slug, coupleNames string) *Wedding {
	now := time.Now().UTC()
	return &Wedding{
		ID:          uuid.New().String(),
		Slug:        strings.ToLower(strings.TrimSpace(slug)),
		CoupleNames: strings.TrimSpace(coupleNames),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewUpload creates upload metadata for the given wedding.
func NewUpload(weddingID, fileName, contentType string, size int64) *Upload {
	return &Upload{
		ID:          uuid.New().String(),
		WeddingID:   weddingID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
}

func (w *Wedding) Validate() error {
	if w.ID == "" {
		return errors.New("wedding ID cannot be empty")
	}
	if !slugPattern.MatchString(w.Slug) {
		return fmt.Errorf("invalid slug: %q", w.Slug)
	}
	if len(w.Slug) > 64 {
		return errors.New("slug cannot exceed 64 characters")
	}
	if w.CoupleNames == "" {
		return errors.New("couple names cannot be empty")
	}
	if w.Email != "" && !strings.Contains(w.Email, "@") {
		return fmt.Errorf("invalid email: %q", w.Email)
	}
	if w.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// IsRegistered reports whether the couple has attached an email to the site.
func (w *Wedding) IsRegistered() bool {
	return w.Email != ""
}
