// Package redis provides a read-through cache in front of the chunk store.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

const keyPrefix = "nctb:chunk:"

// ChunkCache decorates a ChunkStore. Cache errors are logged and never fail
// the call; the wrapped store stays the source of truth.
type ChunkCache struct {
	next    ports.ChunkStore
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

func NewChunkCache(next ports.ChunkStore, backend Backend, ttl time.Duration, logger *slog.Logger) *ChunkCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ChunkCache{next: next, backend: backend, ttl: ttl, logger: logger}
}

func (c *ChunkCache) Get(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	raw, ok, err := c.backend.Get(ctx, chunkKey(chunkID))
	if err != nil {
		c.logger.Warn("chunk_cache_get_failed", "chunk_id", chunkID, "error", err)
	} else if ok {
		var chunk domain.Chunk
		if err := json.Unmarshal([]byte(raw), &chunk); err == nil {
			return &chunk, nil
		}
		c.logger.Warn("chunk_cache_decode_failed", "chunk_id", chunkID)
	}

	chunk, err := c.next.Get(ctx, chunkID)
	if err != nil || chunk == nil {
		return chunk, err
	}
	c.store(ctx, *chunk)
	return chunk, nil
}

func (c *ChunkCache) Put(ctx context.Context, chunk domain.Chunk) error {
	if err := c.next.Put(ctx, chunk); err != nil {
		return err
	}
	c.store(ctx, chunk)
	return nil
}

func (c *ChunkCache) DeleteChapter(ctx context.Context, classLevel, subject, chapter string) error {
	if err := c.next.DeleteChapter(ctx, classLevel, subject, chapter); err != nil {
		return err
	}
	setKey := chapterKey(classLevel, subject, chapter)
	ids, err := c.backend.SMembers(ctx, setKey)
	if err != nil {
		c.logger.Warn("chunk_cache_evict_failed", "chapter", chapter, "error", err)
		return nil
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, chunkKey(id))
	}
	keys = append(keys, setKey)
	if err := c.backend.Del(ctx, keys...); err != nil {
		c.logger.Warn("chunk_cache_evict_failed", "chapter", chapter, "error", err)
	}
	return nil
}

func (c *ChunkCache) store(ctx context.Context, chunk domain.Chunk) {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	if err := c.backend.Set(ctx, chunkKey(chunk.ChunkID), string(raw), c.ttl); err != nil {
		c.logger.Warn("chunk_cache_set_failed", "chunk_id", chunk.ChunkID, "error", err)
		return
	}
	if err := c.backend.SAdd(ctx, chapterKey(chunk.ClassLevel, chunk.Subject, chunk.Chapter), chunk.ChunkID, c.ttl); err != nil {
		c.logger.Warn("chunk_cache_index_failed", "chunk_id", chunk.ChunkID, "error", err)
	}
}

func chunkKey(id string) string {
	return keyPrefix + id
}

func chapterKey(classLevel, subject, chapter string) string {
	return "nctb:chapter:" + classLevel + "|" + subject + "|" + chapter
}
