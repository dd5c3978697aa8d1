package usecase

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

const fallbackChapterWords = 15

type IngestTextbookUseCase struct {
	chunker       ports.Chunker
	embedder      ports.Embedder
	index         ports.VectorIndex
	store         ports.ChunkStore
	registry      ports.TextbookRegistry
	storage       ports.ObjectStorage
	extractor     ports.TextExtractor
	queue         ports.IngestQueue
	curriculum    domain.Curriculum
	embedMaxChars int
	overlapWords  int
	now           func() time.Time
}

type IngestSettings struct {
	EmbedMaxChars int
	// OverlapWords bounds the repeated prefix searched for when mapping
	// chunks back to source pages.
	OverlapWords int
}

func NewIngestTextbookUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	store ports.ChunkStore,
	registry ports.TextbookRegistry,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	queue ports.IngestQueue,
	curriculum domain.Curriculum,
	settings IngestSettings,
) *IngestTextbookUseCase {
	if settings.EmbedMaxChars <= 0 {
		settings.EmbedMaxChars = DefaultEmbedMaxChars
	}
	if curriculum == nil {
		curriculum = domain.DefaultCurriculum()
	}
	return &IngestTextbookUseCase{
		chunker:       chunker,
		embedder:      embedder,
		index:         index,
		store:         store,
		registry:      registry,
		storage:       storage,
		extractor:     extractor,
		queue:         queue,
		curriculum:    curriculum,
		embedMaxChars: settings.EmbedMaxChars,
		overlapWords:  settings.OverlapWords,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Ingest stores, chunks, embeds and indexes one textbook upload. Re-uploading
// identical bytes for a chapter is a no-op; different bytes replace the
// chapter's chunks.
func (uc *IngestTextbookUseCase) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	return uc.ingest(ctx, req, "")
}

// Enqueue stores the upload and hands it to the ingestion worker.
func (uc *IngestTextbookUseCase) Enqueue(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "enqueue textbook", errors.New("async ingestion is not enabled"))
	}
	req, err := validateIngestRequest(req)
	if err != nil {
		return nil, err
	}

	key := storageKey(contentHash(req.Body), req.Filename)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(req.Body)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := domain.IngestJob{
		ID:          uuid.NewString(),
		StorageKey:  key,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		ChapterName: req.ChapterName,
		EnqueuedAt:  uc.now(),
	}
	if err := uc.queue.PublishIngestJob(ctx, job); err != nil {
		return nil, fmt.Errorf("publish ingest job: %w", err)
	}
	return &job, nil
}

// ProcessJob runs a queued ingestion from the stored upload.
func (uc *IngestTextbookUseCase) ProcessJob(ctx context.Context, job domain.IngestJob) (*domain.IngestResult, error) {
	reader, err := uc.storage.Open(ctx, job.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored upload: %w", err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored upload: %w", err)
	}

	return uc.ingest(ctx, domain.IngestRequest{
		Filename:    job.Filename,
		ContentType: job.ContentType,
		Body:        body,
		ClassLevel:  job.ClassLevel,
		Subject:     job.Subject,
		ChapterName: job.ChapterName,
	}, job.StorageKey)
}

func (uc *IngestTextbookUseCase) ingest(ctx context.Context, req domain.IngestRequest, storedKey string) (*domain.IngestResult, error) {
	req, err := validateIngestRequest(req)
	if err != nil {
		return nil, err
	}
	hash := contentHash(req.Body)

	var pages []domain.Page
	chapter := req.ChapterName
	if chapter == "" {
		if pages, err = uc.extract(ctx, req); err != nil {
			return nil, err
		}
		chapter = DetectChapter(pages, uc.curriculum.Chapters(req.ClassLevel, req.Subject))
	}

	existing, err := uc.registry.Find(ctx, req.ClassLevel, req.Subject, chapter)
	if err != nil {
		return nil, fmt.Errorf("lookup textbook record: %w", err)
	}
	if existing != nil && existing.ContentHash == hash {
		slog.Info("textbook_duplicate_skipped", "class_level", req.ClassLevel, "subject", req.Subject, "chapter", chapter)
		return &domain.IngestResult{
			ChunksCount: existing.ChunksCount,
			ClassLevel:  req.ClassLevel,
			Subject:     req.Subject,
			ChapterName: chapter,
			ContentHash: hash,
			Duplicate:   true,
		}, nil
	}

	if pages == nil {
		if pages, err = uc.extract(ctx, req); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		// The record goes first so a failed replacement never leaves a
		// duplicate match pointing at deleted chunks.
		if err := uc.registry.Delete(ctx, req.ClassLevel, req.Subject, chapter); err != nil {
			return nil, fmt.Errorf("invalidate textbook record: %w", err)
		}
		if err := uc.deleteChapter(ctx, req.ClassLevel, req.Subject, chapter); err != nil {
			return nil, err
		}
	}

	key := storedKey
	if key == "" {
		key = storageKey(hash, req.Filename)
		if err := uc.storage.Save(ctx, key, bytes.NewReader(req.Body)); err != nil {
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
	}

	count, err := uc.indexPages(ctx, pages, req.ClassLevel, req.Subject, chapter)
	if err != nil {
		if cleanupErr := uc.deleteChapter(context.WithoutCancel(ctx), req.ClassLevel, req.Subject, chapter); cleanupErr != nil {
			slog.Warn("textbook_partial_cleanup_failed", "class_level", req.ClassLevel, "subject", req.Subject, "chapter", chapter, "error", cleanupErr)
		}
		return nil, err
	}

	record := domain.TextbookRecord{
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		Chapter:     chapter,
		ContentHash: hash,
		Filename:    req.Filename,
		StorageKey:  key,
		ChunksCount: count,
		IngestedAt:  uc.now(),
	}
	if err := uc.registry.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save textbook record: %w", err)
	}

	slog.Info("textbook_ingested",
		"class_level", req.ClassLevel,
		"subject", req.Subject,
		"chapter", chapter,
		"chunks", count,
		"pages", len(pages),
	)
	return &domain.IngestResult{
		ChunksCount: count,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		ChapterName: chapter,
		ContentHash: hash,
	}, nil
}

func (uc *IngestTextbookUseCase) extract(ctx context.Context, req domain.IngestRequest) ([]domain.Page, error) {
	pages, err := uc.extractor.Extract(ctx, req.Filename, req.Body)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no text could be extracted from the upload"))
	}
	return pages, nil
}

func (uc *IngestTextbookUseCase) deleteChapter(ctx context.Context, classLevel, subject, chapter string) error {
	filter := domain.RetrievalFilter{ClassLevel: classLevel, Subject: subject, Chapter: chapter}
	if err := uc.index.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("delete stale vectors: %w", err)
	}
	if err := uc.store.DeleteChapter(ctx, classLevel, subject, chapter); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}
	slog.Info("textbook_stale_chunks_deleted", "class_level", classLevel, "subject", subject, "chapter", chapter)
	return nil
}

func (uc *IngestTextbookUseCase) indexPages(ctx context.Context, pages []domain.Page, classLevel, subject, chapter string) (int, error) {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	pieces := uc.chunker.Split(strings.Join(texts, " "))
	if len(pieces) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk textbook", errors.New("chunking produced zero chunks"))
	}
	pageNumbers := EstimatePages(pages, pieces, uc.overlapWords)

	for i, text := range pieces {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		chunk := domain.Chunk{
			ChunkID:    domain.ChunkID(classLevel, subject, chapter, i),
			Text:       text,
			ClassLevel: classLevel,
			Subject:    subject,
			Chapter:    chapter,
			PageNumber: pageNumbers[i],
			WordCount:  len(strings.Fields(text)),
			TextHash:   textHash(text),
			CreatedAt:  uc.now(),
		}

		vector, err := uc.embedder.Embed(ctx, domain.TruncateRunes(text, uc.embedMaxChars))
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		if err := uc.store.Put(ctx, chunk); err != nil {
			return 0, fmt.Errorf("store chunk %s: %w", chunk.ChunkID, err)
		}
		if err := uc.index.Upsert(ctx, chunk.ChunkID, vector, chunk.Metadata()); err != nil {
			return 0, fmt.Errorf("index chunk %s: %w", chunk.ChunkID, err)
		}
	}
	return len(pieces), nil
}

func validateIngestRequest(req domain.IngestRequest) (domain.IngestRequest, error) {
	req.ClassLevel = strings.TrimSpace(req.ClassLevel)
	req.Subject = strings.TrimSpace(req.Subject)
	req.ChapterName = strings.TrimSpace(req.ChapterName)
	switch {
	case req.ClassLevel == "" || req.Subject == "":
		return req, domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("class_level and subject are required"))
	case len(req.Body) == 0:
		return req, domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("empty file"))
	}
	return req, nil
}

// DetectChapter returns the curriculum chapter whose name appears earliest in
// the text (case-insensitive). Without a match it falls back to the first
// words of the text.
func DetectChapter(pages []domain.Page, chapters []string) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	full := strings.Join(texts, " ")
	lower := strings.ToLower(full)

	best, bestPos := "", -1
	for _, name := range chapters {
		if name == "" {
			continue
		}
		pos := strings.Index(lower, strings.ToLower(name))
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(name) > len(best)) {
			best, bestPos = name, pos
		}
	}
	if best != "" {
		return best
	}

	words := strings.Fields(full)
	if len(words) > fallbackChapterWords {
		words = words[:fallbackChapterWords]
	}
	if len(words) == 0 {
		return "Untitled"
	}
	return strings.Join(words, " ")
}

// EstimatePages maps every chunk to the page its first new word came from.
// Consecutive chunks may repeat up to overlapWords words of their predecessor.
func EstimatePages(pages []domain.Page, chunks []string, overlapWords int) []int {
	starts := make([]int, len(pages))
	total := 0
	for i, p := range pages {
		starts[i] = total
		total += len(strings.Fields(p.Text))
	}

	out := make([]int, len(chunks))
	start := 0
	var prev []string
	for i, chunk := range chunks {
		words := strings.Fields(chunk)
		repeated := 0
		if i > 0 {
			repeated = overlapLen(prev, words, overlapWords)
			start += len(prev) - repeated
		}
		out[i] = pageAt(pages, starts, start+repeated)
		prev = words
	}
	return out
}

func overlapLen(prev, cur []string, bound int) int {
	limit := min(bound, len(prev), len(cur))
	for k := limit; k > 0; k-- {
		match := true
		for j := 0; j < k; j++ {
			if prev[len(prev)-k+j] != cur[j] {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

func pageAt(pages []domain.Page, starts []int, offset int) int {
	if len(pages) == 0 {
		return 1
	}
	idx := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	return pages[idx].Number
}

func contentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func textHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func storageKey(hash, filename string) string {
	return hash + "_" + sanitizeFilename(filename)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.Trim(base, "._")
	if base == "" {
		return "textbook.bin"
	}
	return base
}
