// Package memory holds process-local stores used when no database is
// configured.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string]domain.Chunk)}
}

func (s *ChunkStore) Get(_ context.Context, chunkID string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, nil
	}
	return &chunk, nil
}

func (s *ChunkStore) Put(_ context.Context, chunk domain.Chunk) error {
	if chunk.ChunkID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "put chunk", errors.New("empty chunk id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ChunkID] = chunk
	return nil
}

func (s *ChunkStore) DeleteChapter(_ context.Context, classLevel, subject, chapter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.ClassLevel == classLevel && chunk.Subject == subject && chunk.Chapter == chapter {
			delete(s.chunks, id)
		}
	}
	return nil
}

func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

type textbookKey struct {
	classLevel, subject, chapter string
}

type TextbookRegistry struct {
	mu      sync.RWMutex
	records map[textbookKey]domain.TextbookRecord
}

func NewTextbookRegistry() *TextbookRegistry {
	return &TextbookRegistry{records: make(map[textbookKey]domain.TextbookRecord)}
}

func (r *TextbookRegistry) Find(_ context.Context, classLevel, subject, chapter string) (*domain.TextbookRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[textbookKey{classLevel, subject, chapter}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *TextbookRegistry) Save(_ context.Context, rec domain.TextbookRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[textbookKey{rec.ClassLevel, rec.Subject, rec.Chapter}] = rec
	return nil
}

func (r *TextbookRegistry) Delete(_ context.Context, classLevel, subject, chapter string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, textbookKey{classLevel, subject, chapter})
	return nil
}
