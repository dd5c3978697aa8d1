package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/resilience"
)

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "openai embed", errors.New("empty text"))
	}

	vector, err := resilience.Call(ctx, e.client.executor, "openai.embed", func(callCtx context.Context) ([]float32, error) {
		resp, err := e.client.api.CreateEmbeddings(callCtx, goopenai.EmbeddingRequest{
			Input:      []string{text},
			Model:      goopenai.EmbeddingModel(e.client.embedModel),
			Dimensions: e.client.dimensions,
		})
		if err != nil {
			return nil, toStatusError("embed", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, errors.New("openai embed: empty embedding result")
		}
		return resp.Data[0].Embedding, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapUpstream("openai embed", err, resilience.ClassifyHTTPError)
	}
	return vector, nil
}
