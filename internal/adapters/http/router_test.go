package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

func postJSON(t *testing.T, h http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, res.Body.String())
	}
	return out
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthReportsPipelineState(t *testing.T) {
	handler := newTestHandler(config.Config{}, &tutorFake{state: domain.StateDegraded})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["status"] != "healthy" || body["service"] != "NCTB RAG API" || body["version"] != "1.0.0" {
		t.Fatalf("unexpected health body %+v", body)
	}
	if body["rag_initialized"] != false || body["rag_state"] != "degraded" {
		t.Fatalf("expected degraded state, got %+v", body)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestListSubjectsWorksWhileDegraded(t *testing.T) {
	handler := newTestHandler(config.Config{}, &tutorFake{state: domain.StateDegraded})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/list-subjects", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Curriculum domain.Curriculum `json:"curriculum"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Curriculum.Chapters("9", "Physics")) == 0 {
		t.Fatalf("expected class 9 physics chapters, got %+v", body.Curriculum)
	}
}

func TestAskQuestionReturnsAnswerWithSources(t *testing.T) {
	svc := &tutorFake{state: domain.StateReady}
	res := postJSON(t, newTestHandler(config.Config{}, svc), "/ask-question", map[string]any{
		"question":    "  What is velocity? ",
		"class_level": "9",
		"subject":     "Physics",
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.answerQ != "What is velocity?" {
		t.Fatalf("expected trimmed question, got %q", svc.answerQ)
	}
	body := decodeBody(t, res)
	if body["confidence"] != float64(82) || body["source_chunks_count"] != float64(1) {
		t.Fatalf("unexpected body %+v", body)
	}
	sources := body["sources"].([]any)
	first := sources[0].(map[string]any)
	if first["chunk_id"] != "9_Physics_Motion_0" || first["text"] == "" || first["page_number"] != float64(2) {
		t.Fatalf("unexpected source %+v", first)
	}
}

func TestAskQuestionValidatesBeforeCallingPipeline(t *testing.T) {
	svc := &tutorFake{state: domain.StateReady}
	res := postJSON(t, newTestHandler(config.Config{}, svc), "/ask-question", map[string]any{"question": "x"})

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("pipeline must not be called on invalid input")
	}
	body := decodeBody(t, res)
	if body["status"] != "error" || !strings.Contains(body["error"].(string), "class_level is required") {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestEmptyBodyIsRejected(t *testing.T) {
	svc := &tutorFake{}
	req := httptest.NewRequest(http.MethodPost, "/generate-summary", strings.NewReader(""))
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, svc).ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "no JSON data provided") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestSearchContentTopKDefaultsAndBounds(t *testing.T) {
	svc := &tutorFake{}
	handler := newTestHandler(config.Config{RAGTopK: 5}, svc)

	res := postJSON(t, handler, "/search-content", map[string]any{"query": "velocity", "class_level": "9"})
	if res.Code != http.StatusOK || svc.retrieveK != 5 {
		t.Fatalf("expected default top_k 5, got code=%d k=%d", res.Code, svc.retrieveK)
	}
	body := decodeBody(t, res)
	if body["total_found"] != float64(1) {
		t.Fatalf("unexpected body %+v", body)
	}

	res = postJSON(t, handler, "/search-content", map[string]any{"query": "velocity", "class_level": "9", "top_k": 51})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for top_k above 50, got %d", res.Code)
	}
}

func TestGenerateQuizDefaultsAndRawFallback(t *testing.T) {
	svc := &tutorFake{}
	res := postJSON(t, newTestHandler(config.Config{}, svc), "/generate-quiz", map[string]any{
		"class_level": "9", "subject": "Physics", "chapter": "Motion",
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.quizCounts != [2]int{5, 2} {
		t.Fatalf("expected default counts, got %v", svc.quizCounts)
	}
	body := decodeBody(t, res)
	quiz := body["quiz"].(map[string]any)
	if quiz["raw_content"] != "not json" || len(quiz["mcqs"].([]any)) != 0 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if body["source_chunks"] != float64(2) {
		t.Fatalf("unexpected source_chunks %v", body["source_chunks"])
	}
}

func TestGenerateSummaryRequiresChapter(t *testing.T) {
	res := postJSON(t, newTestHandler(config.Config{}, &tutorFake{}), "/generate-summary", map[string]any{
		"class_level": "9", "subject": "Physics",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestErrorKindsMapToStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.WrapError(domain.ErrContentNotFound, "summarize", errors.New("no content found for this chapter")), http.StatusNotFound},
		{"degraded", domain.WrapError(domain.ErrServiceDegraded, "acquire", errors.New("missing OPENAI_API_KEY")), http.StatusServiceUnavailable},
		{"degraded by bad config", fmt.Errorf("%w: %w", domain.ErrServiceDegraded, domain.WrapError(domain.ErrInvalidInput, "select vector backend", errors.New(`unknown VECTOR_BACKEND "pinecone"`))), http.StatusServiceUnavailable},
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("chapter is required")), http.StatusBadRequest},
		{"upstream", domain.WrapError(domain.ErrUpstreamService, "openai", errors.New("quota exceeded")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrUpstreamService, "openai", domain.WrapError(domain.ErrTemporary, "openai", errors.New("503"))), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := postJSON(t, newTestHandler(config.Config{}, &tutorFake{err: tc.err}), "/generate-summary", map[string]any{
				"class_level": "9", "subject": "Physics", "chapter": "Motion",
			})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			body := decodeBody(t, res)
			if body["status"] != "error" || body["error"] == "" {
				t.Fatalf("expected error envelope, got %+v", body)
			}
		})
	}
}

func TestDegradedErrorStatesPipelineNotInitialized(t *testing.T) {
	err := domain.WrapError(domain.ErrServiceDegraded, "availability", errors.New("OPENAI_API_KEY is not set"))
	res := postJSON(t, newTestHandler(config.Config{}, &tutorFake{err: err}), "/ask-question", map[string]any{
		"question": "What is velocity?", "class_level": "9",
	})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "RAG pipeline not initialized") {
		t.Fatalf("expected explicit degraded message, got %s", res.Body.String())
	}
}

func TestUploadTextbookSync(t *testing.T) {
	svc := &tutorFake{}
	body, contentType := multipartUpload(t, map[string]string{"class_level": "9", "subject": "Physics"}, "motion.txt", []byte("Motion is change of position."))
	req := httptest.NewRequest(http.MethodPost, "/upload-textbook", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, svc).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.ingestReq.Filename != "motion.txt" || string(svc.ingestReq.Body) != "Motion is change of position." {
		t.Fatalf("unexpected ingest request %+v", svc.ingestReq)
	}
	out := decodeBody(t, res)
	if out["chunks_count"] != float64(3) || out["chapter_name"] != "Motion" || out["message"] != "Processed 3 chunks from Physics Class 9" {
		t.Fatalf("unexpected upload response %+v", out)
	}
}

func TestUploadTextbookAsyncReturnsJob(t *testing.T) {
	svc := &tutorFake{}
	body, contentType := multipartUpload(t, map[string]string{"class_level": "10", "subject": "Biology", "async": "true"}, "nutrition.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload-textbook", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, svc).ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if !svc.enqueued {
		t.Fatalf("expected Enqueue to be used")
	}
	if out := decodeBody(t, res); out["job_id"] != "job-1" || out["status"] != "accepted" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestUploadTextbookRequiresFileAndFields(t *testing.T) {
	svc := &tutorFake{}
	handler := newTestHandler(config.Config{}, svc)

	body, contentType := multipartUpload(t, map[string]string{"class_level": "9", "subject": "Physics"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload-textbook", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", res.Code)
	}

	body, contentType = multipartUpload(t, map[string]string{"class_level": "9"}, "a.txt", []byte("text"))
	req = httptest.NewRequest(http.MethodPost, "/upload-textbook", body)
	req.Header.Set("Content-Type", contentType)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest || !strings.Contains(res.Body.String(), "subject is required") {
		t.Fatalf("expected subject validation error, got %d %s", res.Code, res.Body.String())
	}
	if svc.calls != 0 {
		t.Fatalf("pipeline must not be called")
	}
}

func TestUploadTextbookEnforcesSizeLimit(t *testing.T) {
	body, contentType := multipartUpload(t, map[string]string{"class_level": "9", "subject": "Physics"}, "big.txt", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload-textbook", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	newTestHandler(config.Config{UploadMaxBytes: 1024}, &tutorFake{}).ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, &tutorFake{}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["status"] != "error" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	handler := newTestHandler(config.Config{}, &tutorFake{})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "nctb_http_requests_total") {
		t.Fatalf("expected metrics output, got %d", res.Code)
	}
}
