package expiration

import (
	"errors"
	"fmt"
	"strings"

	"bind8/internal/models"
)

// SiteInput is an unvalidated site description, typically decoded from JSON.
type SiteInput struct {
	IsPremium   bool
	Email       string
	WeddingDate string // optional, RFC3339 or YYYY-MM-DD
	CreatedAt   string // required, RFC3339 or YYYY-MM-DD
}

// ValidationError reports an input field that cannot be turned into a Site.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InputFromRequest maps the stateless API request onto SiteInput.
func InputFromRequest(req models.ExpirationCheckRequest) SiteInput {
	return SiteInput{
		IsPremium:   req.IsPremium,
		Email:       req.Email,
		WeddingDate: req.WeddingDate,
		CreatedAt:   req.CreatedAt,
	}
}

// ParseSite validates in and returns the Site it describes. Malformed dates
// are rejected rather than carried into the expiration arithmetic.
func ParseSite(in SiteInput) (*Site, error) {
	created := strings.TrimSpace(in.CreatedAt)
	if created == "" {
		return nil, &ValidationError{Field: "created_at", Err: errors.New("required")}
	}
	createdAt, err := models.ParseDate(created)
	if err != nil {
		return nil, &ValidationError{Field: "created_at", Value: created, Err: err}
	}

	site := &Site{
		IsPremium: in.IsPremium,
		Email:     strings.TrimSpace(in.Email),
		CreatedAt: createdAt,
	}

	if wd := strings.TrimSpace(in.WeddingDate); wd != "" {
		weddingDate, err := models.ParseDate(wd)
		if err != nil {
			return nil, &ValidationError{Field: "wedding_date", Value: wd, Err: err}
		}
		site.WeddingDate = &weddingDate
	}

	return site, nil
}
