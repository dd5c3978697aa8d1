package ports

import (
	"context"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

// TextbookIngestor is the inbound contract for textbook upload.
type TextbookIngestor interface {
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)
	Enqueue(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error)
}

// IngestJobProcessor runs queued ingestion jobs.
type IngestJobProcessor interface {
	ProcessJob(ctx context.Context, job domain.IngestJob) (*domain.IngestResult, error)
}

// ContentSearcher runs filtered semantic retrieval.
type ContentSearcher interface {
	Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error)
}

// QuestionAnswerer produces grounded answers.
type QuestionAnswerer interface {
	Answer(ctx context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error)
}

// StudyMaterialGenerator produces chapter summaries and quizzes.
type StudyMaterialGenerator interface {
	Summarize(ctx context.Context, filter domain.RetrievalFilter) (*domain.Summary, error)
	GenerateQuiz(ctx context.Context, filter domain.RetrievalFilter, mcqCount, shortCount int) (*domain.Quiz, error)
}

// TutorService is everything the outer surfaces need from the pipeline.
type TutorService interface {
	TextbookIngestor
	ContentSearcher
	QuestionAnswerer
	StudyMaterialGenerator
}

// AvailabilityReporter exposes the pipeline initialization state.
type AvailabilityReporter interface {
	State() domain.ServiceState
}
