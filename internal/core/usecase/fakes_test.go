package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type embedderFake struct {
	mu     sync.Mutex
	inputs []string
	err    error
	// okCalls lets that many calls succeed before err is returned.
	okCalls int
}

func (f *embedderFake) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
	if f.err != nil && len(f.inputs) > f.okCalls {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type indexEntry struct {
	vector []float32
	meta   domain.ChunkMetadata
}

type indexFake struct {
	mu       sync.Mutex
	entries  map[string]indexEntry
	scores   map[string]float64
	hits     []domain.VectorHit
	deleted  []domain.RetrievalFilter
	lastTopK int
	queryErr error
}

func newIndexFake() *indexFake {
	return &indexFake{entries: map[string]indexEntry{}, scores: map[string]float64{}}
}

func (f *indexFake) Upsert(_ context.Context, id string, vector []float32, meta domain.ChunkMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id] = indexEntry{vector: vector, meta: meta}
	return nil
}

func (f *indexFake) Query(_ context.Context, _ []float32, filter domain.RetrievalFilter, topK int) ([]domain.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTopK = topK
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.hits != nil {
		return f.hits, nil
	}
	var out []domain.VectorHit
	for id, e := range f.entries {
		if !filter.Matches(e.meta) {
			continue
		}
		score, ok := f.scores[id]
		if !ok {
			score = 0.5
		}
		out = append(out, domain.VectorHit{ChunkID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ChunkID < out[j].ChunkID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *indexFake) DeleteByFilter(_ context.Context, filter domain.RetrievalFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filter)
	for id, e := range f.entries {
		if filter.Matches(e.meta) {
			delete(f.entries, id)
		}
	}
	return nil
}

type storeFake struct {
	mu     sync.Mutex
	chunks map[string]domain.Chunk
	getErr error
}

func newStoreFake(chunks ...domain.Chunk) *storeFake {
	s := &storeFake{chunks: map[string]domain.Chunk{}}
	for _, c := range chunks {
		s.chunks[c.ChunkID] = c
	}
	return s
}

func (f *storeFake) Get(_ context.Context, id string) (*domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.chunks[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *storeFake) Put(_ context.Context, c domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[c.ChunkID] = c
	return nil
}

func (f *storeFake) DeleteChapter(_ context.Context, classLevel, subject, chapter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.ClassLevel == classLevel && c.Subject == subject && c.Chapter == chapter {
			delete(f.chunks, id)
		}
	}
	return nil
}

type completerFake struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	text     string
	err      error
}

func (f *completerFake) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type registryFake struct {
	records map[string]domain.TextbookRecord
	deletes int
}

func newRegistryFake() *registryFake {
	return &registryFake{records: map[string]domain.TextbookRecord{}}
}

func (f *registryFake) Find(_ context.Context, classLevel, subject, chapter string) (*domain.TextbookRecord, error) {
	rec, ok := f.records[classLevel+"|"+subject+"|"+chapter]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *registryFake) Save(_ context.Context, rec domain.TextbookRecord) error {
	f.records[rec.ClassLevel+"|"+rec.Subject+"|"+rec.Chapter] = rec
	return nil
}

func (f *registryFake) Delete(_ context.Context, classLevel, subject, chapter string) error {
	f.deletes++
	delete(f.records, classLevel+"|"+subject+"|"+chapter)
	return nil
}

type storageFake struct {
	objects map[string][]byte
	saves   int
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saves++
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrContentNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// extractorFake treats the body as text with pages separated by "\f".
type extractorFake struct {
	calls int
}

func (f *extractorFake) Extract(_ context.Context, _ string, data []byte) ([]domain.Page, error) {
	f.calls++
	var pages []domain.Page
	for i, part := range strings.Split(string(data), "\f") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: strings.Join(strings.Fields(part), " ")})
	}
	return pages, nil
}

type queueFake struct {
	jobs []domain.IngestJob
	err  error
}

func (f *queueFake) PublishIngestJob(_ context.Context, job domain.IngestJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// sentenceChunker emits one chunk per sentence.
type sentenceChunker struct{}

func (sentenceChunker) Split(text string) []string {
	var out []string
	for _, s := range strings.SplitAfter(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func physicsChunk(id, chapter, text string) domain.Chunk {
	return domain.Chunk{ChunkID: id, Text: text, ClassLevel: "9", Subject: "Physics", Chapter: chapter, PageNumber: 1, WordCount: len(strings.Fields(text))}
}
