package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type searcherFake struct {
	matches   []domain.RetrievalMatch
	err       error
	lastQuery string
	lastTopK  int
	lastScope domain.RetrievalFilter
}

func (f *searcherFake) Retrieve(_ context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error) {
	f.lastQuery, f.lastTopK, f.lastScope = query, topK, filter
	return f.matches, f.err
}

func match(id string, score float64, text string) domain.RetrievalMatch {
	c := physicsChunk(id, "Motion", text)
	return domain.RetrievalMatch{ChunkID: id, Score: score, Chunk: &c}
}

func TestAnswerGroundsPromptInRetrievedContext(t *testing.T) {
	searcher := &searcherFake{matches: []domain.RetrievalMatch{
		match("c1", 0.87, "Velocity is the rate of change of displacement."),
		match("c2", 0.61, "Speed is a scalar quantity."),
	}}
	completer := &completerFake{text: "Velocity is speed with direction."}
	uc := NewAnswerUseCase(searcher, completer, 0)

	answer, err := uc.Answer(context.Background(), " What is velocity? ", domain.RetrievalFilter{ClassLevel: "9", Subject: "Physics"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Confidence != 87 || len(answer.Sources) != 2 || answer.Query != "What is velocity?" {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if searcher.lastTopK != DefaultTopK {
		t.Fatalf("expected top %d retrieval, got %d", DefaultTopK, searcher.lastTopK)
	}

	req := completer.requests[0]
	if req.MaxTokens != 1500 || req.Temperature != 0.7 || req.User != "What is velocity?" {
		t.Fatalf("unexpected completion request %+v", req)
	}
	want := "Velocity is the rate of change of displacement.\n\nSpeed is a scalar quantity."
	if !strings.Contains(req.System, want) || !strings.Contains(req.System, "Answer based ONLY on the provided textbook content") {
		t.Fatalf("system prompt missing context or grounding rule:\n%s", req.System)
	}
}

func TestAnswerWithoutMatchesStillCallsModel(t *testing.T) {
	completer := &completerFake{text: "This topic is not covered in your book."}
	uc := NewAnswerUseCase(&searcherFake{}, completer, 5)

	answer, err := uc.Answer(context.Background(), "What is photosynthesis?", domain.RetrievalFilter{ClassLevel: "9", Subject: "Physics"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Confidence != 50 || len(answer.Sources) != 0 {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if len(completer.requests) != 1 || !strings.Contains(completer.requests[0].System, "not covered in their Class 9 Physics book") {
		t.Fatalf("expected not-covered prompt, got %+v", completer.requests)
	}
}

func TestAnswerCompletionFailureIsUpstream(t *testing.T) {
	completer := &completerFake{err: domain.WrapError(domain.ErrUpstreamService, "openai chat", errors.New("503"))}
	uc := NewAnswerUseCase(&searcherFake{matches: []domain.RetrievalMatch{match("c1", 0.5, "x")}}, completer, 5)

	_, err := uc.Answer(context.Background(), "q", domain.RetrievalFilter{ClassLevel: "9"})
	if !domain.IsKind(err, domain.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestAnswerRequiresQuestion(t *testing.T) {
	uc := NewAnswerUseCase(&searcherFake{}, &completerFake{}, 5)
	if _, err := uc.Answer(context.Background(), "", domain.RetrievalFilter{ClassLevel: "9"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConfidenceBounds(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   int
	}{
		{name: "no matches", want: 50},
		{name: "perfect match capped", scores: []float64{1.0}, want: 95},
		{name: "rounded", scores: []float64{0.874, 0.2}, want: 87},
		{name: "zero", scores: []float64{0}, want: 0},
		{name: "negative clamped", scores: []float64{-0.3}, want: 0},
		{name: "best is not first", scores: []float64{0.3, 0.9}, want: 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var matches []domain.RetrievalMatch
			for i, s := range tt.scores {
				matches = append(matches, domain.RetrievalMatch{ChunkID: string(rune('a' + i)), Score: s})
			}
			if got := Confidence(matches); got != tt.want {
				t.Fatalf("Confidence() = %d, want %d", got, tt.want)
			}
		})
	}
}
