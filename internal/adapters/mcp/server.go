package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
	"github.com/kirillkom/nctb-tutor/internal/core/usecase"
)

const (
	serverName    = "nctb-tutor"
	serverVersion = "1.0.0"
)

// Tools exposes the tutoring pipeline as MCP tools.
type Tools struct {
	svc        ports.TutorService
	curriculum domain.Curriculum
	topK       int
}

func NewTools(svc ports.TutorService, curriculum domain.Curriculum, topK int) *Tools {
	if curriculum == nil {
		curriculum = domain.DefaultCurriculum()
	}
	if topK <= 0 {
		topK = usecase.DefaultTopK
	}
	return &Tools{svc: svc, curriculum: curriculum, topK: topK}
}

func (t *Tools) NewServer() *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	scope := func(chapterRequired bool) []mcp.ToolOption {
		chapterOpts := []mcp.PropertyOption{mcp.Description("Chapter name")}
		subjectOpts := []mcp.PropertyOption{mcp.Description("Subject, e.g. Physics")}
		if chapterRequired {
			chapterOpts = append(chapterOpts, mcp.Required())
			subjectOpts = append(subjectOpts, mcp.Required())
		}
		return []mcp.ToolOption{
			mcp.WithString("class_level", mcp.Required(), mcp.Description("Class level, 9 to 12")),
			mcp.WithString("subject", subjectOpts...),
			mcp.WithString("chapter", chapterOpts...),
		}
	}

	s.AddTool(mcp.NewTool("ask_question", append([]mcp.ToolOption{
		mcp.WithDescription("Answer a student question from the indexed textbook content."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The student's question")),
	}, scope(false)...)...), t.AskQuestion)

	s.AddTool(mcp.NewTool("search_content", append([]mcp.ToolOption{
		mcp.WithDescription("Find the textbook passages most relevant to a query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages, 1 to 50")),
	}, scope(false)...)...), t.SearchContent)

	s.AddTool(mcp.NewTool("generate_summary", append([]mcp.ToolOption{
		mcp.WithDescription("Summarize one indexed chapter."),
	}, scope(true)...)...), t.GenerateSummary)

	s.AddTool(mcp.NewTool("generate_quiz", append([]mcp.ToolOption{
		mcp.WithDescription("Generate multiple-choice and short questions for one chapter."),
		mcp.WithNumber("mcq_count", mcp.Description("Multiple-choice questions, 1 to 20")),
		mcp.WithNumber("short_count", mcp.Description("Short questions, 0 to 10")),
	}, scope(true)...)...), t.GenerateQuiz)

	s.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List classes, subjects and chapters of the curriculum."),
	), t.ListSubjects)

	return s
}

func (t *Tools) AskQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter, errResult := filterFrom(req)
	if errResult != nil {
		return errResult, nil
	}
	answer, err := t.svc.Answer(ctx, question, filter)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(answer)
}

func (t *Tools) SearchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter, errResult := filterFrom(req)
	if errResult != nil {
		return errResult, nil
	}
	topK := req.GetInt("top_k", t.topK)
	if topK < 1 || topK > 50 {
		return mcp.NewToolResultError("top_k must be between 1 and 50"), nil
	}
	matches, err := t.svc.Retrieve(ctx, query, filter, topK)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"chunks": matches, "total_found": len(matches)})
}

func (t *Tools) GenerateSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, errResult := filterFrom(req)
	if errResult != nil {
		return errResult, nil
	}
	summary, err := t.svc.Summarize(ctx, filter)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(summary.Text), nil
}

func (t *Tools) GenerateQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, errResult := filterFrom(req)
	if errResult != nil {
		return errResult, nil
	}
	quiz, err := t.svc.GenerateQuiz(ctx, filter,
		req.GetInt("mcq_count", usecase.DefaultMCQCount),
		req.GetInt("short_count", usecase.DefaultShortCount),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(quiz)
}

func (t *Tools) ListSubjects(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.curriculum)
}

func filterFrom(req mcp.CallToolRequest) (domain.RetrievalFilter, *mcp.CallToolResult) {
	classLevel, err := req.RequireString("class_level")
	if err != nil {
		return domain.RetrievalFilter{}, mcp.NewToolResultError(err.Error())
	}
	return domain.RetrievalFilter{
		ClassLevel: strings.TrimSpace(classLevel),
		Subject:    strings.TrimSpace(req.GetString("subject", "")),
		Chapter:    strings.TrimSpace(req.GetString("chapter", "")),
	}, nil
}

// toolError reports pipeline failures in the result so the model can see
// them; protocol errors are reserved for transport problems.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errorCategory(err) + ": " + err.Error())
}

// errorCategory tells the caller whether retrying can help. Degraded comes
// first because it wraps the initialization cause, whatever its kind.
func errorCategory(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrServiceDegraded), domain.IsKind(err, domain.ErrTemporary):
		return "service unavailable"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid arguments"
	case domain.IsKind(err, domain.ErrContentNotFound):
		return "not found"
	case domain.IsKind(err, domain.ErrUpstreamService):
		return "upstream failure"
	default:
		return "internal error"
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
