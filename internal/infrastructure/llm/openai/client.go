package openai

import (
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/resilience"
)

const (
	DefaultChatModel  = "gpt-4o-mini"
	DefaultEmbedModel = "text-embedding-3-small"
)

// UsageRecorder receives token usage reported by chat completions.
type UsageRecorder func(operation, model string, promptTokens, completionTokens int)

type Options struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Dimensions int
	Timeout    time.Duration
	Executor   *resilience.Executor
	Usage      UsageRecorder
}

type Client struct {
	api        *goopenai.Client
	chatModel  string
	embedModel string
	dimensions int
	executor   *resilience.Executor
	usage      UsageRecorder
}

func New(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingCredentials, "openai client", errors.New("OPENAI_API_KEY is not set"))
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &Client{
		api:        goopenai.NewClientWithConfig(cfg),
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		dimensions: opts.Dimensions,
		executor:   opts.Executor,
		usage:      opts.Usage,
	}, nil
}

func (c *Client) ChatModel() string {
	return c.chatModel
}

// toStatusError flattens go-openai transport errors into the shared
// HTTPStatusError so the resilience classifier can see the status code.
func toStatusError(operation string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &resilience.HTTPStatusError{
			Service:    "openai",
			Operation:  operation,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     http.StatusText(apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &resilience.HTTPStatusError{
			Service:    "openai",
			Operation:  operation,
			StatusCode: reqErr.HTTPStatusCode,
			Status:     http.StatusText(reqErr.HTTPStatusCode),
			Body:       reqErr.Error(),
		}
	}
	return err
}
