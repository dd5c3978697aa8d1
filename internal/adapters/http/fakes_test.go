package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type tutorFake struct {
	state domain.ServiceState
	err   error

	ingestReq  domain.IngestRequest
	enqueued   bool
	retrieveK  int
	answerQ    string
	lastFilter domain.RetrievalFilter
	quizCounts [2]int
	calls      int
}

func (f *tutorFake) State() domain.ServiceState { return f.state }

func (f *tutorFake) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	f.calls++
	f.ingestReq = req
	if f.err != nil {
		return nil, f.err
	}
	chapter := req.ChapterName
	if chapter == "" {
		chapter = "Motion"
	}
	return &domain.IngestResult{ChunksCount: 3, ClassLevel: req.ClassLevel, Subject: req.Subject, ChapterName: chapter, ContentHash: "abc"}, nil
}

func (f *tutorFake) Enqueue(_ context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	f.calls++
	f.enqueued = true
	f.ingestReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IngestJob{ID: "job-1", ClassLevel: req.ClassLevel, Subject: req.Subject, ChapterName: req.ChapterName}, nil
}

func (f *tutorFake) Retrieve(_ context.Context, _ string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error) {
	f.calls++
	f.retrieveK = topK
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []domain.RetrievalMatch{sourceMatch()}, nil
}

func (f *tutorFake) Answer(_ context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error) {
	f.calls++
	f.answerQ = query
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{Text: "Velocity is speed with direction.", Confidence: 82, Sources: []domain.RetrievalMatch{sourceMatch()}, Query: query, Filter: filter}, nil
}

func (f *tutorFake) Summarize(_ context.Context, filter domain.RetrievalFilter) (*domain.Summary, error) {
	f.calls++
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Summary{Text: "Motion overview", Chapter: filter.Chapter, ClassLevel: filter.ClassLevel, Subject: filter.Subject, SourceChunkCount: 4}, nil
}

func (f *tutorFake) GenerateQuiz(_ context.Context, filter domain.RetrievalFilter, mcq, short int) (*domain.Quiz, error) {
	f.calls++
	f.lastFilter = filter
	f.quizCounts = [2]int{mcq, short}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Quiz{MCQs: []domain.MCQ{}, ShortQuestions: []domain.ShortQuestion{}, RawContent: "not json", SourceChunkCount: 2}, nil
}

func sourceMatch() domain.RetrievalMatch {
	return domain.RetrievalMatch{
		ChunkID: "9_Physics_Motion_0",
		Score:   0.82,
		Chunk: &domain.Chunk{
			ChunkID:    "9_Physics_Motion_0",
			Text:       "Velocity is speed with direction.",
			ClassLevel: "9",
			Subject:    "Physics",
			Chapter:    "Motion",
			PageNumber: 2,
			WordCount:  5,
		},
	}
}

func newTestHandler(cfg config.Config, svc *tutorFake) http.Handler {
	return NewRouter(cfg, svc, nil, nil).Handler()
}
