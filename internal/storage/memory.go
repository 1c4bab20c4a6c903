package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bind8/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and scenarios where data
// persistence is not required. It provides fast access but data is lost on restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	weddings map[string]*models.Wedding
	slugs    map[string]string           // slug -> wedding ID
	uploads  map[string][]*models.Upload // key: wedding ID
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		weddings: make(map[string]*models.Wedding),
		slugs:    make(map[string]string),
		uploads:  make(map[string][]*models.Upload),
	}, nil
}

// ListWeddings returns all wedding sites, oldest first
func (m *MemoryStorage) ListWeddings(ctx context.Context) ([]*models.Wedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	weddings := make([]*models.Wedding, 0, len(m.weddings))
	for _, w := range m.weddings {
		weddings = append(weddings, copyWedding(w))
	}

	sort.Slice(weddings, func(i, j int) bool {
		if weddings[i].CreatedAt.Equal(weddings[j].CreatedAt) {
			return weddings[i].ID < weddings[j].ID
		}
		return weddings[i].CreatedAt.Before(weddings[j].CreatedAt)
	})

	return weddings, nil
}

// GetWedding retrieves a wedding site by its ID
func (m *MemoryStorage) GetWedding(ctx context.Context, id string) (*models.Wedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, exists := m.weddings[id]
	if !exists {
		return nil, fmt.Errorf("wedding %s: %w", id, ErrNotFound)
	}

	return copyWedding(w), nil
}

// SaveWedding stores or updates a wedding site
func (m *MemoryStorage) SaveWedding(ctx context.Context, w *models.Wedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, taken := m.slugs[w.Slug]; taken && owner != w.ID {
		return fmt.Errorf("slug %s: %w", w.Slug, ErrConflict)
	}

	if prev, exists := m.weddings[w.ID]; exists && prev.Slug != w.Slug {
		delete(m.slugs, prev.Slug)
	}

	// Store a copy to prevent external modification
	m.weddings[w.ID] = copyWedding(w)
	m.slugs[w.Slug] = w.ID

	return nil
}

// DeleteWedding removes a wedding site and its uploads
func (m *MemoryStorage) DeleteWedding(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exists := m.weddings[id]
	if !exists {
		return fmt.Errorf("wedding %s: %w", id, ErrNotFound)
	}

	delete(m.slugs, w.Slug)
	delete(m.weddings, id)
	delete(m.uploads, id)
	return nil
}

// SaveUpload records upload metadata for an existing wedding
func (m *MemoryStorage) SaveUpload(ctx context.Context, u *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.weddings[u.WeddingID]; !exists {
		return fmt.Errorf("wedding %s: %w", u.WeddingID, ErrNotFound)
	}

	uploadCopy := *u
	list := m.uploads[u.WeddingID]
	for i, existing := range list {
		if existing.ID == u.ID {
			list[i] = &uploadCopy
			return nil
		}
	}
	m.uploads[u.WeddingID] = append(list, &uploadCopy)
	return nil
}

// ListUploads returns a wedding's uploads, oldest first
func (m *MemoryStorage) ListUploads(ctx context.Context, weddingID string) ([]*models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.uploads[weddingID]
	result := make([]*models.Upload, len(list))
	for i, u := range list {
		uploadCopy := *u
		result[i] = &uploadCopy
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Ping always succeeds for in-memory storage
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}

func copyWedding(w *models.Wedding) *models.Wedding {
	c := *w
	if w.WeddingDate != nil {
		d := *w.WeddingDate
		c.WeddingDate = &d
	}
	return &c
}
