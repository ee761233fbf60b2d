package chat

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/neighborhood/config"
	"github.com/effective-security/xlog"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/neighborhood", "chat")

// DefaultModel is used when the configuration does not name one.
// The gateway is OpenAI-compatible, so the identifier is routed as-is.
const DefaultModel = "anthropic/claude-3.5-sonnet"

// ErrEmptyResponse is returned when the gateway returns no choices.
var ErrEmptyResponse = errors.New("empty response")

// Client is a single-turn chat client over an OpenAI-compatible gateway.
type Client struct {
	api   openai.Client
	model string
}

// New returns a chat client, or nil when no token is configured.
// A nil *Client is a valid "AI disabled" state for the orchestrator.
func New(cfg *config.LLMConfig, opts ...option.RequestOption) *Client {
	if cfg == nil || cfg.Token == "" {
		return nil
	}

	ro := []option.RequestOption{option.WithAPIKey(cfg.Token)}
	if cfg.BaseURL != "" {
		ro = append(ro, option.WithBaseURL(cfg.BaseURL))
	}
	ro = append(ro, opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:   openai.NewClient(ro...),
		model: model,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one system+user turn and returns the model's text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", c.model,
		"tokens", resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, nil
}
