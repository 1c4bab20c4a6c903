package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bind8/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS weddings (
	id           TEXT PRIMARY KEY,
	slug         TEXT NOT NULL UNIQUE,
	couple_names TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	wedding_date TIMESTAMPTZ,
	is_premium   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
	id           TEXT PRIMARY KEY,
	wedding_id   TEXT NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
	file_name    TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_wedding_id ON uploads (wedding_id);
`

const weddingColumns = `id, slug, couple_names, email, wedding_date, is_premium, created_at, updated_at`

// PostgresStorage implements the Storage interface using PostgreSQL through a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and ensures the schema exists.
func NewPostgresStorage(config Config) (Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(config.MaxIdleConns, config.MaxOpenConns))
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// ListWeddings returns all wedding sites, oldest first.
func (ps *PostgresStorage) ListWeddings(ctx context.Context) ([]*models.Wedding, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+weddingColumns+` FROM weddings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list weddings: %w", err)
	}
	defer rows.Close()

	weddings := []*models.Wedding{}
	for rows.Next() {
		w, err := scanPgWedding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wedding: %w", err)
		}
		weddings = append(weddings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list weddings: %w", err)
	}

	return weddings, nil
}

// GetWedding retrieves a wedding site by its ID.
func (ps *PostgresStorage) GetWedding(ctx context.Context, id string) (*models.Wedding, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+weddingColumns+` FROM weddings WHERE id = $1`, id)
	w, err := scanPgWedding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wedding %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wedding: %w", err)
	}
	return w, nil
}

// SaveWedding stores or updates a wedding site (upsert on ID).
func (ps *PostgresStorage) SaveWedding(ctx context.Context, w *models.Wedding) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO weddings (`+weddingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			couple_names = EXCLUDED.couple_names,
			email = EXCLUDED.email,
			wedding_date = EXCLUDED.wedding_date,
			is_premium = EXCLUDED.is_premium,
			updated_at = EXCLUDED.updated_at`,
		w.ID, w.Slug, w.CoupleNames, w.Email, timePtrToPgTimestamptz(w.WeddingDate),
		w.IsPremium, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("slug %s: %w", w.Slug, ErrConflict)
		}
		return fmt.Errorf("failed to save wedding: %w", err)
	}
	return nil
}

// DeleteWedding removes a wedding site; uploads cascade.
func (ps *PostgresStorage) DeleteWedding(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM weddings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wedding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wedding %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveUpload records upload metadata if the wedding exists.
func (ps *PostgresStorage) SaveUpload(ctx context.Context, u *models.Upload) error {
	tag, err := ps.pool.Exec(ctx, `
		INSERT INTO uploads (id, wedding_id, file_name, content_type, size, created_at)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::bigint, $6::timestamptz
		WHERE EXISTS (SELECT 1 FROM weddings WHERE id = $2::text)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size`,
		u.ID, u.WeddingID, u.FileName, u.ContentType, u.Size, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wedding %s: %w", u.WeddingID, ErrNotFound)
	}
	return nil
}

// ListUploads returns a wedding's uploads, oldest first.
func (ps *PostgresStorage) ListUploads(ctx context.Context, weddingID string) ([]*models.Upload, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, wedding_id, file_name, content_type, size, created_at
		FROM uploads WHERE wedding_id = $1 ORDER BY created_at, id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*models.Upload{}
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.ID, &u.WeddingID, &u.FileName, &u.ContentType, &u.Size, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		uploads = append(uploads, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	return uploads, nil
}

// Ping verifies the storage backend is reachable and operational.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the storage connection.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func scanPgWedding(row pgx.Row) (*models.Wedding, error) {
	var (
		w           models.Wedding
		weddingDate pgtype.Timestamptz
	)
	if err := row.Scan(&w.ID, &w.Slug, &w.CoupleNames, &w.Email, &weddingDate,
		&w.IsPremium, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.WeddingDate = pgTimestamptzToTimePtr(weddingDate)
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}

// pgtype helpers

func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func pgTimestamptzToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
