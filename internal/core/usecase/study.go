package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

const (
	summaryTopK = 20
	quizTopK    = 15

	DefaultMCQCount   = 5
	DefaultShortCount = 2
	MaxMCQCount       = 20
	MaxShortCount     = 10
)

var answerLetters = []string{"A", "B", "C", "D"}

// QuizFallbackRecorder is told when a quiz completion could not be parsed.
type QuizFallbackRecorder func()

type StudyMaterialUseCase struct {
	retriever  ports.ContentSearcher
	completer  ports.Completer
	onFallback QuizFallbackRecorder
}

func NewStudyMaterialUseCase(retriever ports.ContentSearcher, completer ports.Completer, onFallback QuizFallbackRecorder) *StudyMaterialUseCase {
	return &StudyMaterialUseCase{retriever: retriever, completer: completer, onFallback: onFallback}
}

func (uc *StudyMaterialUseCase) Summarize(ctx context.Context, filter domain.RetrievalFilter) (*domain.Summary, error) {
	filter, matches, err := uc.chapterContent(ctx, filter, summaryTopK)
	if err != nil {
		return nil, err
	}

	text, err := uc.completer.Complete(ctx, domain.CompletionRequest{
		Operation:   "summary",
		System:      summarySystemPrompt,
		User:        summaryUserPrompt(filter, joinContext(matches)),
		MaxTokens:   summaryMaxTokens,
		Temperature: llmTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return &domain.Summary{
		Text:             text,
		Chapter:          filter.Chapter,
		ClassLevel:       filter.ClassLevel,
		Subject:          filter.Subject,
		SourceChunkCount: len(matches),
	}, nil
}

// GenerateQuiz asks the model for a JSON quiz. Output that cannot be parsed
// is returned verbatim in RawContent with empty question lists.
func (uc *StudyMaterialUseCase) GenerateQuiz(
	ctx context.Context,
	filter domain.RetrievalFilter,
	mcqCount, shortCount int,
) (*domain.Quiz, error) {
	if mcqCount < 1 || mcqCount > MaxMCQCount {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate quiz", fmt.Errorf("mcq_count must be between 1 and %d", MaxMCQCount))
	}
	if shortCount < 0 || shortCount > MaxShortCount {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate quiz", fmt.Errorf("short_count must be between 0 and %d", MaxShortCount))
	}

	filter, matches, err := uc.chapterContent(ctx, filter, quizTopK)
	if err != nil {
		return nil, err
	}

	raw, err := uc.completer.Complete(ctx, domain.CompletionRequest{
		Operation:   "quiz",
		System:      quizSystemPrompt,
		User:        quizUserPrompt(filter, joinContext(matches), mcqCount, shortCount),
		MaxTokens:   quizMaxTokens,
		Temperature: llmTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	quiz, err := ParseQuiz(raw, mcqCount, shortCount)
	if err != nil {
		slog.Warn("quiz_parse_fallback", "chapter", filter.Chapter, "error", err)
		if uc.onFallback != nil {
			uc.onFallback()
		}
		quiz = &domain.Quiz{MCQs: []domain.MCQ{}, ShortQuestions: []domain.ShortQuestion{}, RawContent: raw}
	}
	quiz.SourceChunkCount = len(matches)
	return quiz, nil
}

func (uc *StudyMaterialUseCase) chapterContent(
	ctx context.Context,
	filter domain.RetrievalFilter,
	topK int,
) (domain.RetrievalFilter, []domain.RetrievalMatch, error) {
	filter = filter.Normalize()
	if err := filter.RequireChapter(); err != nil {
		return filter, nil, err
	}
	matches, err := uc.retriever.Retrieve(ctx, filter.Chapter, filter, topK)
	if err != nil {
		return filter, nil, err
	}
	if len(matches) == 0 {
		return filter, nil, domain.WrapError(domain.ErrContentNotFound, "load chapter", errors.New("no content found for this chapter"))
	}
	return filter, matches, nil
}

// ParseQuiz decodes the JSON object embedded in raw and normalizes it to at
// most mcqCount well-formed MCQs and shortCount short questions.
func ParseQuiz(raw string, mcqCount, shortCount int) (*domain.Quiz, error) {
	body, ok := extractJSONObject(raw)
	if !ok {
		return nil, domain.WrapError(domain.ErrMalformedOutput, "parse quiz", errors.New("no JSON object in completion"))
	}

	var parsed struct {
		MCQs           []domain.MCQ           `json:"mcqs"`
		ShortQuestions []domain.ShortQuestion `json:"short_questions"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedOutput, "parse quiz", err)
	}

	quiz := &domain.Quiz{
		MCQs:           make([]domain.MCQ, 0, mcqCount),
		ShortQuestions: make([]domain.ShortQuestion, 0, shortCount),
	}
	for _, q := range parsed.MCQs {
		if len(quiz.MCQs) == mcqCount {
			break
		}
		if normalized, ok := normalizeMCQ(q); ok {
			quiz.MCQs = append(quiz.MCQs, normalized)
		}
	}
	for _, q := range parsed.ShortQuestions {
		if len(quiz.ShortQuestions) == shortCount {
			break
		}
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.SampleAnswer = strings.TrimSpace(q.SampleAnswer)
		quiz.ShortQuestions = append(quiz.ShortQuestions, q)
	}
	return quiz, nil
}

func normalizeMCQ(q domain.MCQ) (domain.MCQ, bool) {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" || len(q.Options) < len(answerLetters) {
		return domain.MCQ{}, false
	}
	q.Options = q.Options[:len(answerLetters)]

	answer := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
	// Models sometimes echo the option text, e.g. "B) 9.8 m/s²".
	answer = strings.TrimLeft(answer, "( ")
	if len(answer) > 1 {
		answer = answer[:1]
	}
	valid := false
	for _, letter := range answerLetters {
		if answer == letter {
			valid = true
			break
		}
	}
	if !valid {
		return domain.MCQ{}, false
	}
	q.CorrectAnswer = answer
	q.Explanation = strings.TrimSpace(q.Explanation)
	return q, true
}

func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
