package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

type tutorFake struct {
	err        error
	topK       int
	filter     domain.RetrievalFilter
	quizCounts [2]int
}

func (f *tutorFake) Ingest(context.Context, domain.IngestRequest) (*domain.IngestResult, error) {
	return nil, errors.New("not used")
}

func (f *tutorFake) Enqueue(context.Context, domain.IngestRequest) (*domain.IngestJob, error) {
	return nil, errors.New("not used")
}

func (f *tutorFake) Retrieve(_ context.Context, _ string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error) {
	f.filter, f.topK = filter, topK
	if f.err != nil {
		return nil, f.err
	}
	return []domain.RetrievalMatch{{ChunkID: "9_Physics_Motion_0", Score: 0.7}}, nil
}

func (f *tutorFake) Answer(_ context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{Text: "Velocity has direction.", Confidence: 70, Query: query, Filter: filter}, nil
}

func (f *tutorFake) Summarize(_ context.Context, filter domain.RetrievalFilter) (*domain.Summary, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Summary{Text: "Motion is about position over time."}, nil
}

func (f *tutorFake) GenerateQuiz(_ context.Context, filter domain.RetrievalFilter, mcq, short int) (*domain.Quiz, error) {
	f.filter = filter
	f.quizCounts = [2]int{mcq, short}
	return &domain.Quiz{MCQs: []domain.MCQ{}, ShortQuestions: []domain.ShortQuestion{}}, nil
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestAskQuestionTool(t *testing.T) {
	svc := &tutorFake{}
	tools := NewTools(svc, nil, 5)

	res, err := tools.AskQuestion(context.Background(), call("ask_question", map[string]any{
		"question": "What is velocity?", "class_level": " 9 ", "subject": "Physics",
	}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, res))
	}
	var answer domain.Answer
	if err := json.Unmarshal([]byte(resultText(t, res)), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text != "Velocity has direction." || svc.filter.ClassLevel != "9" || svc.filter.Subject != "Physics" {
		t.Fatalf("unexpected answer %+v filter %+v", answer, svc.filter)
	}
}

func TestAskQuestionToolRequiresArguments(t *testing.T) {
	res, err := NewTools(&tutorFake{}, nil, 5).AskQuestion(context.Background(), call("ask_question", map[string]any{"question": "q"}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "class_level") {
		t.Fatalf("expected class_level error, got %+v", res)
	}
}

func TestSearchContentToolBoundsTopK(t *testing.T) {
	svc := &tutorFake{}
	tools := NewTools(svc, nil, 5)

	res, _ := tools.SearchContent(context.Background(), call("search_content", map[string]any{"query": "velocity", "class_level": "9"}))
	if res.IsError || svc.topK != 5 {
		t.Fatalf("expected default top_k 5, got %d (%s)", svc.topK, resultText(t, res))
	}

	res, _ = tools.SearchContent(context.Background(), call("search_content", map[string]any{"query": "velocity", "class_level": "9", "top_k": float64(80)}))
	if !res.IsError {
		t.Fatalf("expected top_k bound error")
	}
}

func TestPipelineErrorsBecomeToolErrors(t *testing.T) {
	svc := &tutorFake{err: domain.WrapError(domain.ErrServiceDegraded, "availability", errors.New("OPENAI_API_KEY is not set"))}
	res, err := NewTools(svc, nil, 5).GenerateSummary(context.Background(), call("generate_summary", map[string]any{
		"class_level": "9", "subject": "Physics", "chapter": "Motion",
	}))
	if err != nil {
		t.Fatalf("GenerateSummary() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "RAG pipeline not initialized") {
		t.Fatalf("expected degraded tool error, got %s", resultText(t, res))
	}
}

func TestDegradedToolErrorIgnoresWrappedCauseKind(t *testing.T) {
	cause := domain.WrapError(domain.ErrInvalidInput, "select llm provider", errors.New(`unknown LLM_PROVIDER "palm"`))
	svc := &tutorFake{err: fmt.Errorf("%w: %w", domain.ErrServiceDegraded, cause)}
	res, err := NewTools(svc, nil, 5).AskQuestion(context.Background(), call("ask_question", map[string]any{
		"question": "What is velocity?", "class_level": "9",
	}))
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}
	if text := resultText(t, res); !res.IsError || !strings.HasPrefix(text, "service unavailable: ") {
		t.Fatalf("expected unavailable tool error, got %s", text)
	}
}

func TestGenerateQuizToolDefaults(t *testing.T) {
	svc := &tutorFake{}
	res, _ := NewTools(svc, nil, 5).GenerateQuiz(context.Background(), call("generate_quiz", map[string]any{
		"class_level": "9", "subject": "Physics", "chapter": "Motion", "short_count": float64(0),
	}))
	if res.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, res))
	}
	if svc.quizCounts != [2]int{5, 0} {
		t.Fatalf("unexpected counts %v", svc.quizCounts)
	}
}

func TestListSubjectsTool(t *testing.T) {
	res, _ := NewTools(&tutorFake{}, nil, 5).ListSubjects(context.Background(), call("list_subjects", nil))
	var curriculum domain.Curriculum
	if err := json.Unmarshal([]byte(resultText(t, res)), &curriculum); err != nil {
		t.Fatalf("decode curriculum: %v", err)
	}
	if len(curriculum.Chapters("12", "Biology")) == 0 {
		t.Fatalf("expected class 12 biology chapters")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewTools(&tutorFake{}, nil, 5).NewServer()
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal tools/list response: %v", err)
	}
	for _, name := range []string{"ask_question", "search_content", "generate_summary", "generate_quiz", "list_subjects"} {
		if !strings.Contains(string(raw), `"name":"`+name+`"`) {
			t.Fatalf("tool %s not registered: %s", name, raw)
		}
	}
}
