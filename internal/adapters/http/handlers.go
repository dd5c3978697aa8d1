package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/usecase"
)

func (rt *Router) uploadTextbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte upload limit", rt.cfg.UploadMaxBytes))
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload textbook", fmt.Errorf("invalid multipart form: %w", err)))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload textbook", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	form := uploadTextbookRequest{
		ClassLevel:  r.FormValue("class_level"),
		Subject:     r.FormValue("subject"),
		ChapterName: r.FormValue("chapter_name"),
	}
	if err := rt.validateStruct(&form); err != nil {
		writeError(w, r, err)
		return
	}
	async := false
	if raw := strings.TrimSpace(r.FormValue("async")); raw != "" {
		async, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload textbook", errors.New("async must be a boolean")))
			return
		}
	}

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload textbook", fmt.Errorf("read file: %w", err)))
		return
	}
	if len(body) == 0 {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload textbook", errors.New("file is empty")))
		return
	}

	req := domain.IngestRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
		ClassLevel:  form.ClassLevel,
		Subject:     form.Subject,
		ChapterName: form.ChapterName,
	}

	if async {
		job, err := rt.svc.Enqueue(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rt.metrics.RecordIngest(metricsService, false, true)
		writeJSON(w, http.StatusAccepted, uploadResponse{
			Status:      "accepted",
			Message:     fmt.Sprintf("Queued %s Class %s for processing", job.Subject, job.ClassLevel),
			ClassLevel:  job.ClassLevel,
			Subject:     job.Subject,
			ChapterName: job.ChapterName,
			JobID:       job.ID,
		})
		return
	}

	result, err := rt.svc.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordIngest(metricsService, result.Duplicate, false)

	message := fmt.Sprintf("Processed %d chunks from %s Class %s", result.ChunksCount, result.Subject, result.ClassLevel)
	if result.Duplicate {
		message = fmt.Sprintf("Chapter %q is already indexed with identical content", result.ChapterName)
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Status:      "success",
		Message:     message,
		ChunksCount: result.ChunksCount,
		ClassLevel:  result.ClassLevel,
		Subject:     result.Subject,
		ChapterName: result.ChapterName,
		Duplicate:   result.Duplicate,
		ContentHash: result.ContentHash,
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req askQuestionRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	filter := domain.RetrievalFilter{ClassLevel: req.ClassLevel, Subject: req.Subject, Chapter: req.Chapter}
	answer, err := rt.svc.Answer(r.Context(), req.Question, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordRAGObservation(metricsService, "ask_question", len(answer.Sources), time.Since(start))

	writeJSON(w, http.StatusOK, askQuestionResponse{
		Status:            "success",
		Answer:            answer.Text,
		Confidence:        answer.Confidence,
		SourceChunksCount: len(answer.Sources),
		Sources:           toChunkViews(answer.Sources),
		Query:             req.Question,
		ClassLevel:        req.ClassLevel,
		Subject:           req.Subject,
		Chapter:           req.Chapter,
	})
}

func (rt *Router) searchContent(w http.ResponseWriter, r *http.Request) {
	var req searchContentRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	filter := domain.RetrievalFilter{ClassLevel: req.ClassLevel, Subject: req.Subject, Chapter: req.Chapter}
	matches, err := rt.svc.Retrieve(r.Context(), req.Query, filter, intOr(req.TopK, rt.cfg.RAGTopK))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordRAGObservation(metricsService, "search_content", len(matches), time.Since(start))

	writeJSON(w, http.StatusOK, searchContentResponse{
		Status:     "success",
		Chunks:     toChunkViews(matches),
		TotalFound: len(matches),
		Query:      req.Query,
		ClassLevel: req.ClassLevel,
		Subject:    req.Subject,
		Chapter:    req.Chapter,
	})
}

func (rt *Router) generateSummary(w http.ResponseWriter, r *http.Request) {
	var req generateSummaryRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	summary, err := rt.svc.Summarize(r.Context(), domain.RetrievalFilter{ClassLevel: req.ClassLevel, Subject: req.Subject, Chapter: req.Chapter})
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordRAGObservation(metricsService, "generate_summary", summary.SourceChunkCount, time.Since(start))

	writeJSON(w, http.StatusOK, summaryResponse{
		Status:       "success",
		Summary:      summary.Text,
		Chapter:      req.Chapter,
		ClassLevel:   req.ClassLevel,
		Subject:      req.Subject,
		SourceChunks: summary.SourceChunkCount,
	})
}

func (rt *Router) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := rt.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	quiz, err := rt.svc.GenerateQuiz(
		r.Context(),
		domain.RetrievalFilter{ClassLevel: req.ClassLevel, Subject: req.Subject, Chapter: req.Chapter},
		intOr(req.MCQCount, usecase.DefaultMCQCount),
		intOr(req.ShortCount, usecase.DefaultShortCount),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordRAGObservation(metricsService, "generate_quiz", quiz.SourceChunkCount, time.Since(start))

	writeJSON(w, http.StatusOK, quizResponse{
		Status:       "success",
		Quiz:         quiz,
		Chapter:      req.Chapter,
		ClassLevel:   req.ClassLevel,
		Subject:      req.Subject,
		SourceChunks: quiz.SourceChunkCount,
	})
}
