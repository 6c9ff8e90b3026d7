package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// NameRecordRepository stores generated name pairs in processed_images.
type NameRecordRepository struct {
	db *sql.DB
}

func NewNameRecordRepository(db *sql.DB) *NameRecordRepository {
	return &NameRecordRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *NameRecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processed_images (
	id TEXT PRIMARY KEY,
	original_name TEXT NOT NULL,
	new_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_processed_images_created_at ON processed_images(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *NameRecordRepository) SaveNameRecord(ctx context.Context, record *domain.NameRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processed_images (id, original_name, new_name, created_at)
VALUES ($1, $2, $3, $4)
`, record.ID, record.OriginalName, record.NewName, createdAt)
	if err != nil {
		return fmt.Errorf("insert name record: %w", err)
	}
	return nil
}

func (r *NameRecordRepository) ListNameRecords(ctx context.Context, limit int) ([]domain.NameRecord, error) {
	if limit <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list name records", fmt.Errorf("limit must be positive, got %d", limit))
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, original_name, new_name, created_at
FROM processed_images
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query name records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.NameRecord, 0, limit)
	for rows.Next() {
		var rec domain.NameRecord
		if err := rows.Scan(&rec.ID, &rec.OriginalName, &rec.NewName, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan name record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate name records: %w", err)
	}
	return records, nil
}
