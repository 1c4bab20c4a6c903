package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bind8/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWedding(slug string, created time.Time) *models.Wedding {
	w := models.NewWedding(slug, "Ana & Ben")
	w.CreatedAt = created
	w.UpdatedAt = created
	return w
}

// uniqueSlug keeps runs against a shared database from colliding.
func uniqueSlug(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// runStorageSuite exercises the Storage contract against any backend.
func runStorageSuite(t *testing.T, s Storage) {
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("Wedding round trip", func(t *testing.T) {
		w := newTestWedding(uniqueSlug("round-trip"), base)
		date := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
		w.WeddingDate = &date
		w.Email = "ana@example.com"

		require.NoError(t, s.SaveWedding(ctx, w))

		got, err := s.GetWedding(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.ID, got.ID)
		assert.Equal(t, w.Slug, got.Slug)
		assert.Equal(t, "Ana & Ben", got.CoupleNames)
		assert.Equal(t, "ana@example.com", got.Email)
		assert.False(t, got.IsPremium)
		require.NotNil(t, got.WeddingDate)
		assert.True(t, date.Equal(*got.WeddingDate))
		assert.WithinDuration(t, base, got.CreatedAt, time.Millisecond)
	})

	t.Run("Update keeps created_at", func(t *testing.T) {
		w := newTestWedding(uniqueSlug("update"), base)
		require.NoError(t, s.SaveWedding(ctx, w))

		w.IsPremium = true
		w.WeddingDate = nil
		w.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, s.SaveWedding(ctx, w))

		got, err := s.GetWedding(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPremium)
		assert.Nil(t, got.WeddingDate)
		assert.WithinDuration(t, base, got.CreatedAt, time.Millisecond)
		assert.WithinDuration(t, base.Add(time.Hour), got.UpdatedAt, time.Millisecond)
	})

	t.Run("Returned weddings are copies", func(t *testing.T) {
		w := newTestWedding(uniqueSlug("copy"), base)
		require.NoError(t, s.SaveWedding(ctx, w))

		got, err := s.GetWedding(ctx, w.ID)
		require.NoError(t, err)
		got.CoupleNames = "mutated"

		again, err := s.GetWedding(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana & Ben", again.CoupleNames)
	})

	t.Run("Get missing wedding", func(t *testing.T) {
		_, err := s.GetWedding(ctx, uuid.New().String())
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("Slug conflict", func(t *testing.T) {
		slug := uniqueSlug("taken")
		require.NoError(t, s.SaveWedding(ctx, newTestWedding(slug, base)))

		err := s.SaveWedding(ctx, newTestWedding(slug, base))
		assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
	})

	t.Run("List is ordered by creation", func(t *testing.T) {
		later := newTestWedding(uniqueSlug("later"), base.Add(48*time.Hour))
		earlier := newTestWedding(uniqueSlug("earlier"), base.Add(-48*time.Hour))
		require.NoError(t, s.SaveWedding(ctx, later))
		require.NoError(t, s.SaveWedding(ctx, earlier))

		list, err := s.ListWeddings(ctx)
		require.NoError(t, err)

		idx := map[string]int{}
		for i, w := range list {
			idx[w.ID] = i
		}
		require.Contains(t, idx, later.ID)
		require.Contains(t, idx, earlier.ID)
		assert.Less(t, idx[earlier.ID], idx[later.ID])
	})

	t.Run("Uploads", func(t *testing.T) {
		w := newTestWedding(uniqueSlug("uploads"), base)
		require.NoError(t, s.SaveWedding(ctx, w))

		first := models.NewUpload(w.ID, "first.jpg", "image/jpeg", 1024)
		first.CreatedAt = base.Add(time.Minute)
		second := models.NewUpload(w.ID, "second.png", "image/png", 2048)
		second.CreatedAt = base.Add(2 * time.Minute)

		require.NoError(t, s.SaveUpload(ctx, second))
		require.NoError(t, s.SaveUpload(ctx, first))

		uploads, err := s.ListUploads(ctx, w.ID)
		require.NoError(t, err)
		require.Len(t, uploads, 2)
		assert.Equal(t, "first.jpg", uploads[0].FileName)
		assert.Equal(t, "second.png", uploads[1].FileName)
		assert.Equal(t, int64(2048), uploads[1].Size)

		none, err := s.ListUploads(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("Upload for missing wedding", func(t *testing.T) {
		u := models.NewUpload(uuid.New().String(), "orphan.jpg", "image/jpeg", 1)
		err := s.SaveUpload(ctx, u)
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("Delete removes wedding and uploads", func(t *testing.T) {
		w := newTestWedding(uniqueSlug("delete"), base)
		require.NoError(t, s.SaveWedding(ctx, w))
		require.NoError(t, s.SaveUpload(ctx, models.NewUpload(w.ID, "a.jpg", "image/jpeg", 10)))

		require.NoError(t, s.DeleteWedding(ctx, w.ID))

		_, err := s.GetWedding(ctx, w.ID)
		assert.True(t, errors.Is(err, ErrNotFound))

		uploads, err := s.ListUploads(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, uploads)

		err = s.DeleteWedding(ctx, w.ID)
		assert.True(t, errors.Is(err, ErrNotFound))

		// The slug is free again.
		again := newTestWedding(w.Slug, base)
		assert.NoError(t, s.SaveWedding(ctx, again))
	})

	t.Run("Concurrent saves", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.SaveWedding(ctx, newTestWedding(uniqueSlug("concurrent"), base))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}
