package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

// Index keeps chunk vectors in an in-process chromem-go collection. With a
// non-empty path the collection is persisted to disk.
type Index struct {
	db         *chromem.DB
	name       string
	mu         sync.Mutex
	collection *chromem.Collection
}

func New(path, collectionName string) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if strings.TrimSpace(path) == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
	}
	if strings.TrimSpace(collectionName) == "" {
		collectionName = "textbooks"
	}
	return &Index{db: db, name: collectionName}, nil
}

// EnsureIndex opens or creates the collection.
func (i *Index) EnsureIndex(_ context.Context) error {
	_, err := i.getCollection()
	return err
}

func (i *Index) Upsert(ctx context.Context, chunkID string, vector []float32, meta domain.ChunkMetadata) error {
	if strings.TrimSpace(chunkID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "chromem upsert", errors.New("empty chunk id"))
	}
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chromem upsert", errors.New("empty vector"))
	}
	collection, err := i.getCollection()
	if err != nil {
		return err
	}

	// chromem normalizes the slice in place.
	embedding := make([]float32, len(vector))
	copy(embedding, vector)

	doc := chromem.Document{
		ID:        chunkID,
		Embedding: embedding,
		Metadata: map[string]string{
			"class_level": meta.ClassLevel,
			"subject":     meta.Subject,
			"chapter":     meta.Chapter,
			"page_number": strconv.Itoa(meta.PageNumber),
			"word_count":  strconv.Itoa(meta.WordCount),
		},
	}
	if err := collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem upsert %s: %w", chunkID, err)
	}
	return nil
}

func (i *Index) Query(
	ctx context.Context,
	vector []float32,
	filter domain.RetrievalFilter,
	topK int,
) ([]domain.VectorHit, error) {
	collection, err := i.getCollection()
	if err != nil {
		return nil, err
	}
	n := min(topK, collection.Count())
	if n <= 0 {
		return []domain.VectorHit{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)

	var where map[string]string
	if fields := filter.Fields(); len(fields) > 0 {
		where = fields
	}
	results, err := collection.QueryEmbedding(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]domain.VectorHit, 0, len(results))
	for _, r := range results {
		out = append(out, domain.VectorHit{ChunkID: r.ID, Score: clampScore(float64(r.Similarity))})
	}
	return out, nil
}

func (i *Index) DeleteByFilter(ctx context.Context, filter domain.RetrievalFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	collection, err := i.getCollection()
	if err != nil {
		return err
	}
	if collection.Count() == 0 {
		return nil
	}
	if err := collection.Delete(ctx, filter.Fields(), nil); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	return nil
}

func (i *Index) getCollection() (*chromem.Collection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.collection != nil {
		return i.collection, nil
	}
	collection, err := i.db.GetOrCreateCollection(i.name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection %s: %w", i.name, err)
	}
	i.collection = collection
	return collection, nil
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
