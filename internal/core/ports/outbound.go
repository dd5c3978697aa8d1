package ports

import (
	"context"
	"io"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

// Chunker splits cleaned text into bounded, sentence-respecting chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder turns one bounded text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer runs a single chat completion and returns the model text.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// VectorIndex stores chunk vectors with light metadata and answers filtered
// similarity queries.
type VectorIndex interface {
	Upsert(ctx context.Context, chunkID string, vector []float32, meta domain.ChunkMetadata) error
	Query(ctx context.Context, vector []float32, filter domain.RetrievalFilter, topK int) ([]domain.VectorHit, error)
	DeleteByFilter(ctx context.Context, filter domain.RetrievalFilter) error
}

// ChunkStore persists full chunk text keyed by chunk id. Get returns nil, nil
// for unknown ids.
type ChunkStore interface {
	Get(ctx context.Context, chunkID string) (*domain.Chunk, error)
	Put(ctx context.Context, chunk domain.Chunk) error
	DeleteChapter(ctx context.Context, classLevel, subject, chapter string) error
}

// TextbookRegistry remembers the content hash behind each ingested chapter.
// Find returns nil, nil when the chapter was never ingested.
type TextbookRegistry interface {
	Find(ctx context.Context, classLevel, subject, chapter string) (*domain.TextbookRecord, error)
	Save(ctx context.Context, record domain.TextbookRecord) error
	Delete(ctx context.Context, classLevel, subject, chapter string) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor turns source bytes into cleaned, numbered pages.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error)
}

// IngestQueue publishes asynchronous ingestion jobs.
type IngestQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
}
