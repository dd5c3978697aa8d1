package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/resilience"
)

type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.User})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.client.chatModel,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := resilience.Call(ctx, c.client.executor, "openai.complete", func(callCtx context.Context) (goopenai.ChatCompletionResponse, error) {
		resp, err := c.client.api.CreateChatCompletion(callCtx, chatReq)
		if err != nil {
			return goopenai.ChatCompletionResponse{}, toStatusError("complete", err)
		}
		return resp, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return "", resilience.WrapUpstream("openai complete", err, resilience.ClassifyHTTPError)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrUpstreamService, "openai complete", errors.New("no choices returned"))
	}

	if c.client.usage != nil {
		c.client.usage(req.Operation, c.client.chatModel, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
