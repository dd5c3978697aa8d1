package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) Get(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT chunk_id, text, class_level, subject, chapter, page_number, word_count, text_hash, created_at
FROM chunks
WHERE chunk_id = $1
`, chunkID)

	var chunk domain.Chunk
	err := row.Scan(
		&chunk.ChunkID, &chunk.Text, &chunk.ClassLevel, &chunk.Subject, &chunk.Chapter,
		&chunk.PageNumber, &chunk.WordCount, &chunk.TextHash, &chunk.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan chunk %s: %w", chunkID, err)
	}
	return &chunk, nil
}

// Put inserts the chunk or replaces the row with the same id.
func (r *ChunkRepository) Put(ctx context.Context, chunk domain.Chunk) error {
	if chunk.ChunkID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "put chunk", errors.New("empty chunk id"))
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chunks (chunk_id, text, class_level, subject, chapter, page_number, word_count, text_hash, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (chunk_id) DO UPDATE SET
	text = EXCLUDED.text,
	class_level = EXCLUDED.class_level,
	subject = EXCLUDED.subject,
	chapter = EXCLUDED.chapter,
	page_number = EXCLUDED.page_number,
	word_count = EXCLUDED.word_count,
	text_hash = EXCLUDED.text_hash,
	created_at = EXCLUDED.created_at
`,
		chunk.ChunkID, chunk.Text, chunk.ClassLevel, chunk.Subject, chunk.Chapter,
		chunk.PageNumber, chunk.WordCount, chunk.TextHash, chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

func (r *ChunkRepository) DeleteChapter(ctx context.Context, classLevel, subject, chapter string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM chunks
WHERE class_level = $1 AND subject = $2 AND chapter = $3
`, classLevel, subject, chapter)
	if err != nil {
		return fmt.Errorf("delete chapter chunks: %w", err)
	}
	return nil
}
