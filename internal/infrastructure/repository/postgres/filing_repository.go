package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

type FilingRepository struct {
	db *sql.DB
}

func NewFilingRepository(db *sql.DB) *FilingRepository {
	return &FilingRepository{db: db}
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

func (r *FilingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS filings (
	id TEXT PRIMARY KEY,
	entity TEXT NOT NULL,
	year TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	source_url TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	passage_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_filings_status ON filings(status);
CREATE INDEX IF NOT EXISTS idx_filings_entity_year ON filings(entity, year);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FilingRepository) Create(ctx context.Context, filing *domain.Filing) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO filings (
	id, entity, year, filename, mime_type, storage_path, source_url, status, error_message, passage_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		filing.ID, filing.Entity, filing.Year, filing.Filename, filing.MimeType, filing.StoragePath,
		filing.SourceURL, string(filing.Status), filing.Error, filing.PassageCount, filing.CreatedAt, filing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert filing: %w", err)
	}
	return nil
}

func (r *FilingRepository) GetByID(ctx context.Context, id string) (*domain.Filing, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, entity, year, filename, mime_type, storage_path, source_url, status, error_message, passage_count, created_at, updated_at
FROM filings
WHERE id = $1
`, id)

	var filing domain.Filing
	var status string

	err := row.Scan(
		&filing.ID, &filing.Entity, &filing.Year, &filing.Filename, &filing.MimeType, &filing.StoragePath,
		&filing.SourceURL, &status, &filing.Error, &filing.PassageCount, &filing.CreatedAt, &filing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%s", domain.ErrFilingNotFound, id)
		}
		return nil, fmt.Errorf("scan filing: %w", err)
	}

	filing.Status = domain.FilingStatus(status)
	return &filing, nil
}

func (r *FilingRepository) UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE filings
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update filing status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update filing status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id=%s", domain.ErrFilingNotFound, id)
	}
	return nil
}

func (r *FilingRepository) MarkReady(ctx context.Context, id string, passageCount int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE filings
SET status = $2, passage_count = $3, error_message = '', updated_at = $4
WHERE id = $1
`, id, string(domain.FilingReady), passageCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark filing ready: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark filing ready rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id=%s", domain.ErrFilingNotFound, id)
	}
	return nil
}
