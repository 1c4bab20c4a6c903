package wedding

import (
	"context"

	"bind8/internal/models"
)

// ServiceInterface defines the interface for wedding site operations
type ServiceInterface interface {
	// CreateWedding creates a free site from the given request
	CreateWedding(ctx context.Context, req *models.CreateWeddingRequest) (*models.Wedding, error)

	// GetWedding returns a site by ID
	GetWedding(ctx context.Context, id string) (*models.Wedding, error)

	// RegisterEmail attaches the couple's email, moving the site off the 24 hour trial
	RegisterEmail(ctx context.Context, id string, req *models.RegisterEmailRequest) (*models.Wedding, error)

	// MarkPremium upgrades a site so it never expires
	MarkPremium(ctx context.Context, id string) (*models.Wedding, error)

	// Expiration reports a stored site's expiration state
	Expiration(ctx context.Context, id string) (*models.ExpirationResponse, error)

	// CheckExpiration reports the expiration state of a site described inline
	CheckExpiration(ctx context.Context, req *models.ExpirationCheckRequest) (*models.ExpirationResponse, error)

	// ListExpired returns every stored site past its expiration date
	ListExpired(ctx context.Context) ([]*models.Wedding, error)

	// PurgeExpired deletes expired sites, throttled and bounded per run
	PurgeExpired(ctx context.Context) (*models.PurgeResponse, error)

	// RecordUpload stores metadata for a file uploaded to a live site
	RecordUpload(ctx context.Context, id string, req *models.UploadRequest) (*models.Upload, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
