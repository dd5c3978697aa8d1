package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
	"github.com/kirillkom/nctb-tutor/internal/observability/metrics"
)

const (
	serviceName    = "NCTB RAG API"
	serviceVersion = "1.0.0"
	metricsService = "api"

	multipartMemoryBytes = 32 << 20
	backpressureWait     = 250 * time.Millisecond
)

// Tutor is the pipeline surface plus its availability state.
type Tutor interface {
	ports.TutorService
	ports.AvailabilityReporter
}

type Router struct {
	cfg        config.Config
	svc        Tutor
	curriculum domain.Curriculum
	metrics    *metrics.HTTPServerMetrics
	validate   *validator.Validate
	now        func() time.Time
}

func NewRouter(cfg config.Config, svc Tutor, curriculum domain.Curriculum, m *metrics.HTTPServerMetrics) *Router {
	if m == nil {
		m = metrics.NewHTTPServerMetrics(metricsService)
	}
	if curriculum == nil {
		curriculum = domain.DefaultCurriculum()
	}
	if cfg.RAGTopK <= 0 {
		cfg.RAGTopK = 5
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 200 << 20
	}
	return &Router{
		cfg:        cfg,
		svc:        svc,
		curriculum: curriculum,
		metrics:    m,
		validate:   newValidator(),
		now:        time.Now,
	}
}

func (rt *Router) Handler() http.Handler {
	return rt.metrics.Middleware(metricsService, rt.routes())
}

func (rt *Router) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", rt.healthz)
	r.Get("/metrics", rt.metrics.Handler().ServeHTTP)
	r.Get("/openapi.json", serveOpenAPI)
	r.Get("/list-subjects", rt.listSubjects)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, backpressureWait)
		})
		r.Use(func(next http.Handler) http.Handler {
			return requestTimeoutMiddleware(next, rt.cfg.RequestTimeout)
		})

		r.Post("/upload-textbook", rt.uploadTextbook)
		r.Post("/ask-question", rt.askQuestion)
		r.Post("/search-content", rt.searchContent)
		r.Post("/generate-summary", rt.generateSummary)
		r.Post("/generate-quiz", rt.generateQuiz)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	state := rt.svc.State()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Service:        serviceName,
		Version:        serviceVersion,
		RAGInitialized: state == domain.StateReady,
		RAGState:       state.String(),
		Timestamp:      rt.now().UTC().Format(time.RFC3339),
	})
}

// listSubjects serves the static curriculum and works while the pipeline is
// degraded.
func (rt *Router) listSubjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, curriculumResponse{Status: "success", Curriculum: rt.curriculum})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
