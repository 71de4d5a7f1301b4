package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// PassageRepository stores the passage corpus. The BIGSERIAL key doubles as
// corpus order: ListAll returns passages ordered by it, and that order is
// what lexical tie-breaking refers to.
type PassageRepository struct {
	db *sql.DB
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

func (r *PassageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082402)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS passages (
	id BIGSERIAL PRIMARY KEY,
	filing_id TEXT NOT NULL,
	entity TEXT NOT NULL,
	year TEXT NOT NULL,
	section TEXT,
	source_locator TEXT,
	content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_passages_filing ON passages(filing_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// ReplaceForFiling swaps a filing's passages in one transaction, so a
// reprocessed filing never contributes a mix of old and new passages.
func (r *PassageRepository) ReplaceForFiling(ctx context.Context, filingID string, passages []domain.Passage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE filing_id = $1`, filingID); err != nil {
		return fmt.Errorf("delete stale passages: %w", err)
	}

	for _, p := range passages {
		_, err := tx.ExecContext(ctx, `
INSERT INTO passages (filing_id, entity, year, section, source_locator, content)
VALUES ($1,$2,$3,$4,$5,$6)
`, filingID, p.Metadata.Entity, p.Metadata.Year, p.Metadata.Section, p.Metadata.SourceLocator, p.Content)
		if err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}

func (r *PassageRepository) ListAll(ctx context.Context) ([]domain.Passage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT entity, year, section, source_locator, content
FROM passages
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Passage, 0)
	for rows.Next() {
		var p domain.Passage
		err := rows.Scan(
			&p.Metadata.Entity,
			&p.Metadata.Year,
			&p.Metadata.Section,
			&p.Metadata.SourceLocator,
			&p.Content,
		)
		if err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}
