package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

const (
	maxConfidence       = 95
	noContextConfidence = 50
)

type AnswerUseCase struct {
	retriever ports.ContentSearcher
	completer ports.Completer
	topK      int
}

func NewAnswerUseCase(retriever ports.ContentSearcher, completer ports.Completer, topK int) *AnswerUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &AnswerUseCase{retriever: retriever, completer: completer, topK: topK}
}

// Answer synthesizes a reply grounded in the retrieved passages. The model is
// still consulted when nothing was retrieved so it can tell the student the
// topic is not covered.
func (uc *AnswerUseCase) Answer(ctx context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error) {
	filter = filter.Normalize()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}

	matches, err := uc.retriever.Retrieve(ctx, query, filter, uc.topK)
	if err != nil {
		return nil, err
	}

	text, err := uc.completer.Complete(ctx, domain.CompletionRequest{
		Operation:   "answer",
		System:      answerSystemPrompt(filter, joinContext(matches)),
		User:        query,
		MaxTokens:   answerMaxTokens,
		Temperature: llmTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:       text,
		Confidence: Confidence(matches),
		Sources:    matches,
		Query:      query,
		Filter:     filter,
	}, nil
}

// Confidence maps the best match score onto 0..95. Without matches it is 50.
func Confidence(matches []domain.RetrievalMatch) int {
	if len(matches) == 0 {
		return noContextConfidence
	}
	top := matches[0].Score
	for _, m := range matches[1:] {
		top = math.Max(top, m.Score)
	}
	c := int(math.Round(top * 100))
	return max(0, min(c, maxConfidence))
}
