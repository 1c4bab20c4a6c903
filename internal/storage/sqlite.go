package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bind8/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS weddings (
	id           TEXT PRIMARY KEY,
	slug         TEXT NOT NULL UNIQUE,
	couple_names TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	wedding_date TEXT,
	is_premium   INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS uploads (
	id           TEXT PRIMARY KEY,
	wedding_id   TEXT NOT NULL REFERENCES weddings(id),
	file_name    TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploads_wedding_id ON uploads (wedding_id);
`

// sqliteTimeLayout keeps nanoseconds and sorts lexically in UTC.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implements the Storage interface on an SQLite file.
// Timestamps are stored as fixed-width UTC text.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at config.ConnectionString and ensures the schema exists.
func NewSQLiteStorage(config Config) (Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialise through one connection.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// ListWeddings returns all wedding sites, oldest first
func (ss *SQLiteStorage) ListWeddings(ctx context.Context) ([]*models.Wedding, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT `+weddingColumns+` FROM weddings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list weddings: %w", err)
	}
	defer rows.Close()

	weddings := []*models.Wedding{}
	for rows.Next() {
		w, err := scanSQLiteWedding(rows)
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

// GetWedding retrieves a wedding site by its ID
func (ss *SQLiteStorage) GetWedding(ctx context.Context, id string) (*models.Wedding, error) {
	row := ss.db.QueryRowContext(ctx, `SELECT `+weddingColumns+` FROM weddings WHERE id = ?`, id)
	w, err := scanSQLiteWedding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wedding %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wedding: %w", err)
	}
	return w, nil
}

// SaveWedding stores or updates a wedding site
func (ss *SQLiteStorage) SaveWedding(ctx context.Context, w *models.Wedding) error {
	var weddingDate sql.NullString
	if w.WeddingDate != nil {
		weddingDate = sql.NullString{String: formatSQLiteTime(*w.WeddingDate), Valid: true}
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO weddings (`+weddingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug,
			couple_names = excluded.couple_names,
			email = excluded.email,
			wedding_date = excluded.wedding_date,
			is_premium = excluded.is_premium,
			updated_at = excluded.updated_at`,
		w.ID, w.Slug, w.CoupleNames, w.Email, weddingDate, w.IsPremium,
		formatSQLiteTime(w.CreatedAt), formatSQLiteTime(w.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("slug %s: %w", w.Slug, ErrConflict)
		}
		return fmt.Errorf("failed to save wedding: %w", err)
	}
	return nil
}

// DeleteWedding removes a wedding site and its uploads in one transaction
func (ss *SQLiteStorage) DeleteWedding(ctx context.Context, id string) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM uploads WHERE wedding_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete uploads for %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM weddings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wedding %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wedding %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// SaveUpload records upload metadata if the wedding exists
func (ss *SQLiteStorage) SaveUpload(ctx context.Context, u *models.Upload) error {
	res, err := ss.db.ExecContext(ctx, `
		INSERT INTO uploads (id, wedding_id, file_name, content_type, size, created_at)
		SELECT ?1, ?2, ?3, ?4, ?5, ?6
		WHERE EXISTS (SELECT 1 FROM weddings WHERE id = ?2)
		ON CONFLICT (id) DO UPDATE SET
			file_name = excluded.file_name,
			content_type = excluded.content_type,
			size = excluded.size`,
		u.ID, u.WeddingID, u.FileName, u.ContentType, u.Size, formatSQLiteTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wedding %s: %w", u.WeddingID, ErrNotFound)
	}
	return nil
}

// ListUploads returns a wedding's uploads, oldest first
func (ss *SQLiteStorage) ListUploads(ctx context.Context, weddingID string) ([]*models.Upload, error) {
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, wedding_id, file_name, content_type, size, created_at
		FROM uploads WHERE wedding_id = ? ORDER BY created_at, id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*models.Upload{}
	for rows.Next() {
		var (
			u         models.Upload
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.WeddingID, &u.FileName, &u.ContentType, &u.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		if u.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	return uploads, nil
}

// Ping verifies the database file is usable
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteWedding(row rowScanner) (*models.Wedding, error) {
	var (
		w                    models.Wedding
		weddingDate          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&w.ID, &w.Slug, &w.CoupleNames, &w.Email, &weddingDate,
		&w.IsPremium, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if w.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	if weddingDate.Valid {
		d, err := parseSQLiteTime(weddingDate.String)
		if err != nil {
			return nil, err
		}
		w.WeddingDate = &d
	}
	return &w, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
