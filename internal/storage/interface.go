package storage

import (
	"context"
	"time"

	"bind8/internal/models"
)

// Storage defines the interface for wedding site persistence and retrieval.
// It provides a clean abstraction that can be implemented by different backends
// such as in-memory maps or SQL databases.
type Storage interface {
	// ListWeddings returns every wedding site, oldest first
	ListWeddings(ctx context.Context) ([]*models.Wedding, error)

	// GetWedding retrieves a wedding site by its ID
	GetWedding(ctx context.Context, id string) (*models.Wedding, error)

	// SaveWedding stores or updates a wedding site. A slug already used by a
	// different site yields ErrConflict.
	SaveWedding(ctx context.Context, w *models.Wedding) error

	// DeleteWedding removes a wedding site and its uploads
	DeleteWedding(ctx context.Context, id string) error

	// SaveUpload records upload metadata. The wedding must exist.
	SaveUpload(ctx context.Context, u *models.Upload) error

	// ListUploads returns a wedding's uploads, oldest first
	ListUploads(ctx context.Context, weddingID string) ([]*models.Upload, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, postgres, sqlite)
	Type string

	// ConnectionString is used for database backends
	ConnectionString string

	// Pool sizing for database backends; zero keeps the driver default
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
