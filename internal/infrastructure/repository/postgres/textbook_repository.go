package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

// TextbookRepository tracks the last ingested upload per chapter.
type TextbookRepository struct {
	db *sql.DB
}

func NewTextbookRepository(db *sql.DB) *TextbookRepository {
	return &TextbookRepository{db: db}
}

func (r *TextbookRepository) Find(ctx context.Context, classLevel, subject, chapter string) (*domain.TextbookRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT class_level, subject, chapter, content_hash, filename, storage_key, chunks_count, ingested_at
FROM textbook_uploads
WHERE class_level = $1 AND subject = $2 AND chapter = $3
`, classLevel, subject, chapter)

	var rec domain.TextbookRecord
	err := row.Scan(
		&rec.ClassLevel, &rec.Subject, &rec.Chapter, &rec.ContentHash,
		&rec.Filename, &rec.StorageKey, &rec.ChunksCount, &rec.IngestedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan textbook record: %w", err)
	}
	return &rec, nil
}

func (r *TextbookRepository) Save(ctx context.Context, rec domain.TextbookRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO textbook_uploads (class_level, subject, chapter, content_hash, filename, storage_key, chunks_count, ingested_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (class_level, subject, chapter) DO UPDATE SET
	content_hash = EXCLUDED.content_hash,
	filename = EXCLUDED.filename,
	storage_key = EXCLUDED.storage_key,
	chunks_count = EXCLUDED.chunks_count,
	ingested_at = EXCLUDED.ingested_at
`,
		rec.ClassLevel, rec.Subject, rec.Chapter, rec.ContentHash,
		rec.Filename, rec.StorageKey, rec.ChunksCount, rec.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("save textbook record: %w", err)
	}
	return nil
}

func (r *TextbookRepository) Delete(ctx context.Context, classLevel, subject, chapter string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM textbook_uploads
WHERE class_level = $1 AND subject = $2 AND chapter = $3
`, classLevel, subject, chapter)
	if err != nil {
		return fmt.Errorf("delete textbook record: %w", err)
	}
	return nil
}
