package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	defaultLocalBaseURL = "http://127.0.0.1:8080/v1/"
	localPlaceholderKey = "sk-no-key-required"
)

// LocalClient talks to an OpenAI-compatible server such as llama.cpp or vLLM.
type LocalClient struct {
	client openai.Client
	model  string
}

// NewLocalClient constructs a client for an OpenAI-compatible endpoint. The
// base URL is the API root (".../v1"), not the completions path.
func NewLocalClient(cfg Config, opts ...option.RequestOption) *LocalClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = localPlaceholderKey
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(2),
	}
	if cfg.Title != "" {
		clientOpts = append(clientOpts, option.WithHeader("X-Title", cfg.Title))
	}
	clientOpts = append(clientOpts, opts...)
	return &LocalClient{
		client: openai.NewClient(clientOpts...),
		model:  strings.TrimSpace(cfg.Model),
	}
}

// Complete sends the prompts and returns the first choice's text.
func (c *LocalClient) Complete(ctx context.Context, req Request) (string, error) {
	msgs, err := req.messages()
	if err != nil {
		return "", fmt.Errorf("llm local: %w", err)
	}
	params := openai.ChatCompletionNewParams{
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)),
		Model:       c.model,
		Temperature: openai.Float(req.Temperature),
	}
	for _, msg := range msgs {
		if msg.Role == "system" {
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		} else {
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm local: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm local: empty choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm local: empty content (finish_reason=%q)", resp.Choices[0].FinishReason)
	}
	return content, nil
}

// Completer is satisfied by Client and LocalClient.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New returns the client for provider ("openrouter" or "local").
func New(provider string, cfg Config) Completer {
	if strings.EqualFold(strings.TrimSpace(provider), "local") {
		return NewLocalClient(cfg)
	}
	return NewClient(cfg)
}
