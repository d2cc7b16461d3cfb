// Package openai adapts the OpenAI chat completions API (and any
// OpenAI-compatible endpoint) to the flow.Engine interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/core/protocol"
)

var (
	// ErrNoAPIKey is returned when the configured key variable is unset.
	ErrNoAPIKey = errors.New("openai: API key environment variable not set")
	// ErrNoChoices is returned when the API answers without any choice.
	ErrNoChoices = errors.New("openai: response contained no choices")
)

// Client implements flow.Engine over the OpenAI chat completions API.
type Client struct {
	api   *gopenai.Client
	model string
}

// New constructs a Client from cfg, reading the API key from the
// environment variable cfg names.
func New(cfg Config) (*Client, error) {
	merged := DefaultConfig()
	merged.Merge(&cfg)
	cfg = merged

	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, cfg.APIKeyEnv)
	}

	apiCfg := gopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: gopenai.NewClientWithConfig(apiCfg), model: cfg.Model}, nil
}

// NewWithClient wraps an already constructed API client. Useful for tests
// and for callers that need custom transport configuration.
func NewWithClient(api *gopenai.Client, model string) *Client {
	return &Client{api: api, model: model}
}

// Run implements flow.Engine.
func (c *Client) Run(ctx context.Context, req flow.Request) (*flow.Response, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &flow.Response{Text: resp.Choices[0].Message.Content}, nil
}

// RunStream implements flow.Engine. Deltas are forwarded as they arrive;
// the returned response carries the accumulated text.
func (c *Client) RunStream(ctx context.Context, req flow.Request, emit func(ctx context.Context, d flow.Delta) error) (*flow.Response, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion stream failed: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai: stream receive failed: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := emit(ctx, flow.Delta{Agent: req.Agent.Name, Text: delta}); err != nil {
			return nil, err
		}
	}
	return &flow.Response{Text: full.String()}, nil
}

// buildRequest maps a flow request onto the chat completions wire format.
// The agent's instructions become the system message, reasoning marker
// items are internal bookkeeping and are not replayed to the API, and an
// agent output schema becomes a strict JSON-schema response format.
// MaxTurns has no equivalent in a single chat completion and is ignored
// here.
func (c *Client) buildRequest(req flow.Request) gopenai.ChatCompletionRequest {
	model := c.model
	if req.Agent.Model != "" {
		model = req.Agent.Model
	}

	messages := make([]gopenai.ChatCompletionMessage, 0, len(req.Input)+1)
	if req.Agent.Instructions != "" {
		messages = append(messages, gopenai.ChatCompletionMessage{
			Role:    gopenai.ChatMessageRoleSystem,
			Content: req.Agent.Instructions,
		})
	}
	for _, it := range req.Input {
		if it.IsReasoning() || it.Content == "" {
			continue
		}
		messages = append(messages, gopenai.ChatCompletionMessage{
			Role:    mapRole(it.Role),
			Content: it.Content,
		})
	}

	out := gopenai.ChatCompletionRequest{Model: model, Messages: messages}

	if len(req.Agent.OutputSchema) > 0 {
		out.ResponseFormat = &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &gopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Agent.Name,
				Schema: req.Agent.OutputSchema,
				Strict: true,
			},
		}
	}

	applyParams(&out, req.Params)
	return out
}

func mapRole(r protocol.Role) string {
	switch r {
	case protocol.RoleSystem:
		return gopenai.ChatMessageRoleSystem
	case protocol.RoleAssistant:
		return gopenai.ChatMessageRoleAssistant
	default:
		return gopenai.ChatMessageRoleUser
	}
}

// applyParams maps engine passthrough parameters onto request fields.
// Numeric values accept both native Go numbers and the float64 that JSON
// decoding produces. Unknown keys are ignored.
func applyParams(out *gopenai.ChatCompletionRequest, params map[string]any) {
	for key, value := range params {
		switch key {
		case "temperature":
			if f, ok := toFloat32(value); ok {
				out.Temperature = f
			}
		case "top_p":
			if f, ok := toFloat32(value); ok {
				out.TopP = f
			}
		case "max_tokens":
			if n, ok := toInt(value); ok {
				out.MaxCompletionTokens = n
			}
		case "presence_penalty":
			if f, ok := toFloat32(value); ok {
				out.PresencePenalty = f
			}
		case "frequency_penalty":
			if f, ok := toFloat32(value); ok {
				out.FrequencyPenalty = f
			}
		case "stop":
			switch v := value.(type) {
			case []string:
				out.Stop = v
			case string:
				out.Stop = []string{v}
			}
		}
	}
}

func toFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
