package availability

import (
	"context"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
)

// Service is what the controller hands out once initialized.
type Service interface {
	ports.TutorService
	ports.IngestJobProcessor
}

// Gateway exposes the inbound ports backed by a lazily initialized Service.
// Every call fails with domain.ErrServiceDegraded while it is unavailable.
type Gateway struct {
	ctrl *Controller[Service]
}

func NewGateway(ctrl *Controller[Service]) *Gateway {
	return &Gateway{ctrl: ctrl}
}

func (g *Gateway) State() domain.ServiceState {
	return g.ctrl.State()
}

// Warmup triggers initialization and waits for its outcome.
func (g *Gateway) Warmup(ctx context.Context) error {
	_, err := g.ctrl.Acquire(ctx)
	return err
}

func (g *Gateway) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Ingest(ctx, req)
}

func (g *Gateway) Enqueue(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Enqueue(ctx, req)
}

func (g *Gateway) ProcessJob(ctx context.Context, job domain.IngestJob) (*domain.IngestResult, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ProcessJob(ctx, job)
}

func (g *Gateway) Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievalMatch, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Retrieve(ctx, query, filter, topK)
}

func (g *Gateway) Answer(ctx context.Context, query string, filter domain.RetrievalFilter) (*domain.Answer, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Answer(ctx, query, filter)
}

func (g *Gateway) Summarize(ctx context.Context, filter domain.RetrievalFilter) (*domain.Summary, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Summarize(ctx, filter)
}

func (g *Gateway) GenerateQuiz(ctx context.Context, filter domain.RetrievalFilter, mcqCount, shortCount int) (*domain.Quiz, error) {
	svc, err := g.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return svc.GenerateQuiz(ctx, filter, mcqCount, shortCount)
}

var (
	_ ports.TutorService         = (*Gateway)(nil)
	_ ports.IngestJobProcessor   = (*Gateway)(nil)
	_ ports.AvailabilityReporter = (*Gateway)(nil)
)
