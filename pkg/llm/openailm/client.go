package openailm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// Client streams completions through the OpenAI Responses API.
type Client struct {
	client       *openai.Client
	provider     string
	model        string
	maxTokens    int
	buffer       int
	debugEnabled bool
	options      map[string]any
}

// ClientConfig holds the settings of one OpenAI model.
type ClientConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Buffer    int
	Debug     bool
	Options   map[string]any
}

// NewClient creates a new OpenAI client
func NewClient(cfg ClientConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:       &client,
		provider:     cfg.Provider,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		buffer:       cfg.Buffer,
		debugEnabled: cfg.Debug,
		options:      cfg.Options,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) IsTransientError(err error) bool {
	return llm.IsTransientMessage(err)
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertMessages(messages),
		},
	}
	if c.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(c.maxTokens))
	}

	opts := []option.RequestOption{}

	if effortStr, ok := c.options["thinking_effort"].(string); ok && effortStr != "" && effortStr != "off" {
		params.Reasoning = shared.ReasoningParam{
			Effort: reasoningEffort(effortStr),
		}
	}
	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}
	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}

	chunkCh := make(chan llm.StreamChunk, c.buffer)

	go func() {
		defer close(chunkCh)

		stream := c.client.Responses.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.provider, c.debugEnabled)
		defer debugger.Close()

		var thinking strings.Builder
		reason := llm.StopReasonStop
		var usage *llm.LLMUsage

		for stream.Next() {
			event := stream.Current()
			debugger.WriteString(event.RawJSON())

			switch variant := event.AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				if !llm.Send(ctx, chunkCh, llm.NewTextChunk(variant.Delta)) {
					return
				}

			case responses.ResponseReasoningTextDeltaEvent:
				thinking.WriteString(variant.Delta)

			case responses.ResponseReasoningSummaryTextDeltaEvent:
				thinking.WriteString(variant.Delta)

			case responses.ResponseCompletedEvent:
				if variant.Response.Usage.TotalTokens > 0 {
					usage = &llm.LLMUsage{
						PromptTokens:     int(variant.Response.Usage.InputTokens),
						CompletionTokens: int(variant.Response.Usage.OutputTokens),
						TotalTokens:      int(variant.Response.Usage.TotalTokens),
						StopReason:       llm.StopReasonStop,
					}
				}

			case responses.ResponseIncompleteEvent:
				reason = llm.StopReasonLength

			case responses.ResponseFailedEvent:
				llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("response failed: %s", variant.Response.Error.Message)))
				return

			case responses.ResponseErrorEvent:
				llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("API error: %s", variant.Message)))
				return
			}
		}

		if thinking.Len() > 0 {
			slog.DebugContext(ctx, "Captured full thinking process", "provider", c.provider, "content", thinking.String())
		}

		if err := stream.Err(); err != nil {
			llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("stream error: %w", err)))
			return
		}
		llm.Send(ctx, chunkCh, llm.NewFinalChunk(reason, usage))
	}()

	return chunkCh, nil
}

func convertMessages(messages []llm.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, m := range messages {
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, inputRole(m.Role)))
	}
	return items
}

// inputRole maps a message role. Function results are sent as user text.
func inputRole(role llm.Role) responses.EasyInputMessageRole {
	switch role {
	case llm.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	case llm.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	default:
		return responses.EasyInputMessageRoleUser
	}
}

func reasoningEffort(s string) shared.ReasoningEffort {
	switch s {
	case "low":
		return shared.ReasoningEffortLow
	case "high":
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortMedium
	}
}
