package usecase

import (
	"context"
	"errors"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

// Dependencies are the adapters a Pipeline is assembled from.
type Dependencies struct {
	Chunker    ports.Chunker
	Embedder   ports.Embedder
	Completer  ports.Completer
	Index      ports.VectorIndex
	Store      ports.ChunkStore
	Registry   ports.TextbookRegistry
	Storage    ports.ObjectStorage
	Extractor  ports.TextExtractor
	Queue      ports.IngestQueue
	Curriculum domain.Curriculum
}

type Settings struct {
	TopK               int
	EmbedMaxChars      int
	ResolveConcurrency int
	OverlapWords       int
	OnQuizFallback     QuizFallbackRecorder
}

// Pipeline is the fully initialized RAG service.
type Pipeline struct {
	ingest    *IngestTextbookUseCase
	retrieval *RetrievalUseCase
	answer    *AnswerUseCase
	study     *StudyMaterialUseCase
	closers   []func() error
}

func NewPipeline(deps Dependencies, settings Settings, closers ...func() error) *Pipeline {
	retrieval := NewRetrievalUseCase(deps.Embedder, deps.Index, deps.Store, settings.EmbedMaxChars, settings.ResolveConcurrency)
	return &Pipeline{
		ingest: NewIngestTextbookUseCase(
			deps.Chunker,
			deps.Embedder,
			deps.Index,
			deps.Store,
			deps.Registry,
			deps.Storage,
			deps.Extractor,
			deps.Queue,
			deps.Curriculum,
			IngestSettings{EmbedMaxChars: settings.EmbedMaxChars, OverlapWords: settings.OverlapWords},
		),
		retrieval: retrieval,
		answer:    NewAnswerUseCase(retrieval, deps.Completer, settings.TopK),
		study:     NewStudyMaterialUseCase(retrieval, deps.Completer, settings.OnQuizFallback),
		closers:   closers,
	}
}

func (p *Pipeline) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	return p.ingest.Ingest(ctx, req)
}

func (p *Pipeline) Enqueue(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	return p.ingest.Enqueue(ctx, req)
}

func (p *Pipeline) ProcessJob(ctx context.Context, job domain.IngestJob) (*domain.IngestResult, error) {
	return p.ingest.ProcessJob(ctx, job)
}

func (p *Pipeline) Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error) {
	return p.retrieval.Retrieve(ctx, query, filter, topK)
}

func (p *Pipeline) Answer(ctx context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error) {
	return p.answer.Answer(ctx, query, filter)
}

func (p *Pipeline) Summarize(ctx context.Context, filter domain.RetrievalFilter) (*domain.Summary, error) {
	return p.study.Summarize(ctx, filter)
}

func (p *Pipeline) GenerateQuiz(ctx context.Context, filter domain.RetrievalFilter, mcqCount, shortCount int) (*domain.Quiz, error) {
	return p.study.GenerateQuiz(ctx, filter, mcqCount, shortCount)
}

// Close releases the adapters in reverse construction order.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.TutorService       = (*Pipeline)(nil)
	_ ports.IngestJobProcessor = (*Pipeline)(nil)
)
