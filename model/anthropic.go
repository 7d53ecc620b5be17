package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Default request parameters applied when a Request leaves them zero.
const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 2048
)

// AnthropicConfig configures the Anthropic-backed client.
type AnthropicConfig struct {
	// APIKey authenticates with the API (required unless Client is set).
	APIKey string

	// Client is an existing SDK client. Takes precedence over APIKey.
	Client *anthropic.Client
}

// AnthropicClient implements Client on the official SDK.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient constructs a client from config. Fails with
// ErrNoAPIKey when neither an API key nor an SDK client is provided.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.Client != nil {
		return &AnthropicClient{client: config.Client}, nil
	}
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	return &AnthropicClient{client: &client}, nil
}

// Send performs one message call and flattens the reply to text.
func (c *AnthropicClient) Send(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrInvalidResponse
	}

	return &Response{
		Content:      text.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func toMessageParams(msgs []ChatMessage) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		params = append(params, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(m.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}
	return params
}

// classifyError maps SDK failures onto the package's typed errors.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &NetworkError{Err: err}
	}
	switch {
	case apiErr.StatusCode == 429:
		return fmt.Errorf("%w: %v", ErrRateLimited, apiErr)
	case apiErr.StatusCode == 529:
		return fmt.Errorf("%w: %v", ErrOverloaded, apiErr)
	case apiErr.StatusCode == 400 && isTokenBudgetMessage(apiErr.Error()):
		return fmt.Errorf("%w: %v", ErrTokenBudgetExceeded, apiErr)
	default:
		return &HTTPError{Code: apiErr.StatusCode, Body: apiErr.Error()}
	}
}

func isTokenBudgetMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "max_tokens") ||
		strings.Contains(msg, "context_length") ||
		strings.Contains(msg, "token limit") ||
		strings.Contains(msg, "prompt is too long")
}
