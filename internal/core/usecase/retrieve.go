package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

const (
	DefaultTopK               = 5
	DefaultEmbedMaxChars      = 1000
	DefaultResolveConcurrency = 8
)

type RetrievalUseCase struct {
	embedder      ports.Embedder
	index         ports.VectorIndex
	store         ports.ChunkStore
	embedMaxChars int
	concurrency   int
}

func NewRetrievalUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	store ports.ChunkStore,
	embedMaxChars int,
	concurrency int,
) *RetrievalUseCase {
	if embedMaxChars <= 0 {
		embedMaxChars = DefaultEmbedMaxChars
	}
	if concurrency <= 0 {
		concurrency = DefaultResolveConcurrency
	}
	return &RetrievalUseCase{
		embedder:      embedder,
		index:         index,
		store:         store,
		embedMaxChars: embedMaxChars,
		concurrency:   concurrency,
	}
}

// Retrieve returns at most topK chunks matching filter, best first. Hits whose
// chunk text cannot be found are dropped.
func (uc *RetrievalUseCase) Retrieve(
	ctx context.Context,
	query string,
	filter domain.RetrievalFilter,
	topK int,
) ([]domain.RetrievalMatch, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("query is required"))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := uc.embedder.Embed(ctx, domain.TruncateRunes(query, uc.embedMaxChars))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := uc.index.Query(ctx, vector, filter, topK)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	return uc.resolve(ctx, hits)
}

func (uc *RetrievalUseCase) resolve(ctx context.Context, hits []domain.VectorHit) ([]domain.RetrievalMatch, error) {
	chunks := make([]*domain.Chunk, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, hit := range hits {
		g.Go(func() error {
			chunk, err := uc.store.Get(gctx, hit.ChunkID)
			if err != nil {
				return fmt.Errorf("load chunk %s: %w", hit.ChunkID, err)
			}
			chunks[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]domain.RetrievalMatch, 0, len(hits))
	for i, hit := range hits {
		if chunks[i] == nil {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{
			ChunkID: hit.ChunkID,
			Score:   clampScore(hit.Score),
			Chunk:   chunks[i],
		})
	}
	return matches, nil
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
