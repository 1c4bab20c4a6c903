// Package wedding holds the business logic for wedding sites: creation,
// registration, premium upgrades, uploads and the expiry sweep.
package wedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bind8/internal/expiration"
	"bind8/internal/models"
	"bind8/internal/storage"

	"golang.org/x/time/rate"
)

const (
	DefaultPurgeBatchLimit = 500
	DefaultPurgeRate       = 50 // deletes per second
)

// Service handles wedding site business logic
type Service struct {
	storage storage.Storage
	now     func() time.Time

	purgeBatchLimit int
	purgeRate       rate.Limit
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPurgeLimits bounds one PurgeExpired run to batchLimit deletes issued at
// most perSecond times a second. Non-positive values keep the defaults.
func WithPurgeLimits(batchLimit int, perSecond float64) Option {
	return func(s *Service) {
		if batchLimit > 0 {
			s.purgeBatchLimit = batchLimit
		}
		if perSecond > 0 {
			s.purgeRate = rate.Limit(perSecond)
		}
	}
}

// NewService creates a new wedding service with the given storage backend
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		storage:         store,
		now:             time.Now,
		purgeBatchLimit: DefaultPurgeBatchLimit,
		purgeRate:       DefaultPurgeRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWedding creates an unregistered free site, or a registered one when
// the request carries an email.
func (s *Service) CreateWedding(ctx context.Context, req *models.CreateWeddingRequest) (*models.Wedding, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid wedding", err)
	}

	w := models.NewWedding(req.Slug, req.CoupleNames)
	now := s.now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	w.Email = req.Email
	if req.WeddingDate != "" {
		d, err := models.ParseDate(req.WeddingDate)
		if err != nil {
			return nil, NewValidationError("invalid wedding", models.ValidationErrors{"wedding_date": err.Error()})
		}
		w.WeddingDate = &d
	}

	if err := s.storage.SaveWedding(ctx, w); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, NewConflictError(fmt.Sprintf("slug '%s' is already taken", w.Slug))
		}
		return nil, NewInternalError("failed to save wedding", err)
	}

	slog.Info("Wedding site created", "wedding_id", w.ID, "slug", w.Slug, "registered", w.IsRegistered())
	return w, nil
}

// GetWedding returns a site by ID.
func (s *Service) GetWedding(ctx context.Context, id string) (*models.Wedding, error) {
	w, err := s.storage.GetWedding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewWeddingNotFoundError(id)
		}
		return nil, NewInternalError("failed to get wedding", err)
	}
	return w, nil
}

// RegisterEmail attaches an email to a live site. Expired sites cannot be
// revived this way; they are waiting to be purged.
func (s *Service) RegisterEmail(ctx context.Context, id string, req *models.RegisterEmailRequest) (*models.Wedding, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid email", err)
	}

	w, err := s.liveWedding(ctx, id)
	if err != nil {
		return nil, err
	}

	w.Email = normalizeEmail(req.Email)
	w.UpdatedAt = s.now().UTC()
	if err := s.storage.SaveWedding(ctx, w); err != nil {
		return nil, NewInternalError("failed to save wedding", err)
	}

	slog.Info("Wedding site registered", "wedding_id", w.ID)
	return w, nil
}

// MarkPremium upgrades a site. Upgrading an already premium site is a no-op.
func (s *Service) MarkPremium(ctx context.Context, id string) (*models.Wedding, error) {
	w, err := s.GetWedding(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.IsPremium {
		return w, nil
	}

	w.IsPremium = true
	w.UpdatedAt = s.now().UTC()
	if err := s.storage.SaveWedding(ctx, w); err != nil {
		return nil, NewInternalError("failed to save wedding", err)
	}

	slog.Info("Wedding site upgraded to premium", "wedding_id", w.ID)
	return w, nil
}

// Expiration reports a stored site's expiration state.
func (s *Service) Expiration(ctx context.Context, id string) (*models.ExpirationResponse, error) {
	w, err := s.GetWedding(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := expirationResponse(expiration.FromWedding(w), s.now())
	resp.WeddingID = w.ID
	return resp, nil
}

// CheckExpiration validates an inline site description and reports its state.
func (s *Service) CheckExpiration(ctx context.Context, req *models.ExpirationCheckRequest) (*models.ExpirationResponse, error) {
	site, err := expiration.ParseSite(expiration.InputFromRequest(*req))
	if err != nil {
		return nil, NewValidationError("invalid site", err)
	}
	return expirationResponse(site, s.now()), nil
}

// ListExpired returns every stored site past its expiration date, oldest first.
func (s *Service) ListExpired(ctx context.Context) ([]*models.Wedding, error) {
	all, err := s.storage.ListWeddings(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list weddings", err)
	}

	now := s.now()
	expired := []*models.Wedding{}
	for _, w := range all {
		if expiration.IsExpired(expiration.FromWedding(w), now) {
			expired = append(expired, w)
		}
	}
	return expired, nil
}

// PurgeExpired deletes up to the batch limit of expired sites, pacing deletes
// with a token bucket. Sites deleted concurrently by another sweep are skipped.
// A cancelled ctx stops the sweep and returns what was deleted so far.
func (s *Service) PurgeExpired(ctx context.Context) (*models.PurgeResponse, error) {
	expired, err := s.ListExpired(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.PurgeResponse{
		Deleted:  []string{},
		Complete: len(expired) <= s.purgeBatchLimit,
		RanAt:    s.now().UTC(),
	}

	limiter := rate.NewLimiter(s.purgeRate, 1)
	for i, w := range expired {
		if i >= s.purgeBatchLimit {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			resp.Complete = false
			slog.Warn("Purge interrupted", "deleted", len(resp.Deleted), "error", err)
			break
		}
		if err := s.storage.DeleteWedding(ctx, w.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, NewInternalError(fmt.Sprintf("failed to delete wedding '%s'", w.ID), err)
		}
		resp.Deleted = append(resp.Deleted, w.ID)
	}
	resp.Count = len(resp.Deleted)

	slog.Info("Purged expired wedding sites",
		"count", resp.Count,
		"expired", len(expired),
		"complete", resp.Complete,
	)
	return resp, nil
}

// RecordUpload stores metadata for a file uploaded to a live site.
func (s *Service) RecordUpload(ctx context.Context, id string, req *models.UploadRequest) (*models.Upload, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid upload", err)
	}

	if _, err := s.liveWedding(ctx, id); err != nil {
		return nil, err
	}

	u := models.NewUpload(id, req.FileName, req.ContentType, req.Size)
	u.CreatedAt = s.now().UTC()
	if err := s.storage.SaveUpload(ctx, u); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewWeddingNotFoundError(id)
		}
		return nil, NewInternalError("failed to save upload", err)
	}
	return u, nil
}

// liveWedding loads a site and rejects it if expired.
func (s *Service) liveWedding(ctx context.Context, id string) (*models.Wedding, error) {
	w, err := s.GetWedding(ctx, id)
	if err != nil {
		return nil, err
	}
	if expiration.IsExpired(expiration.FromWedding(w), s.now()) {
		return nil, NewConflictError(fmt.Sprintf("wedding '%s' has expired", id))
	}
	return w, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func expirationResponse(site *expiration.Site, now time.Time) *models.ExpirationResponse {
	resp := &models.ExpirationResponse{
		Expired:       expiration.IsExpired(site, now),
		DaysRemaining: expiration.DaysRemaining(site, now),
		Status:        expiration.Status(site, now),
		CheckedAt:     now.UTC(),
	}
	if at, ok := expiration.ExpirationDate(site); ok {
		at = at.UTC()
		resp.ExpiresAt = &at
	}
	return resp
}
