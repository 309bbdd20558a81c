package anthropicllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// Client streams completions through the Anthropic Messages API.
type Client struct {
	client       anthropic.Client
	model        string
	maxTokens    int
	buffer       int
	debugEnabled bool
	options      map[string]any
}

// ClientConfig holds the settings of one Anthropic model.
type ClientConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Buffer    int
	Debug     bool
	Options   map[string]any
}

// NewClient creates an Anthropic client.
func NewClient(cfg ClientConfig) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("anthropic client requires an API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	return &Client{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		maxTokens:    maxTokens,
		buffer:       cfg.Buffer,
		debugEnabled: cfg.Debug,
		options:      cfg.Options,
	}, nil
}

func (c *Client) Provider() string {
	return "anthropic"
}

func (c *Client) IsTransientError(err error) bool {
	return llm.IsTransientMessage(err)
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	system, chat := convertMessages(messages)
	if len(chat) == 0 {
		return nil, errors.New("anthropic completion requires at least one user or assistant message")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  chat,
	}
	if len(system) > 0 {
		params.System = system
	}
	if t, ok := c.options["temperature"].(float64); ok {
		params.Temperature = anthropic.Float(t)
	}

	chunkCh := make(chan llm.StreamChunk, c.buffer)

	go func() {
		defer close(chunkCh)

		stream := c.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.Provider(), c.debugEnabled)
		defer debugger.Close()

		usage := &llm.LLMUsage{}
		reason := llm.StopReasonStop

		for stream.Next() {
			event := stream.Current()
			debugger.WriteString(event.RawJSON())

			switch variant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.PromptTokens = int(variant.Message.Usage.InputTokens)
				usage.CachedTokens = int(variant.Message.Usage.CacheReadInputTokens)

			case anthropic.ContentBlockDeltaEvent:
				var chunk llm.StreamChunk
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					chunk = llm.NewTextChunk(delta.Text)
				case anthropic.ThinkingDelta:
					chunk = llm.NewThinkingChunk(delta.Thinking)
				default:
					continue
				}
				if !llm.Send(ctx, chunkCh, chunk) {
					return
				}

			case anthropic.MessageDeltaEvent:
				usage.CompletionTokens = int(variant.Usage.OutputTokens)
				if variant.Delta.StopReason == anthropic.StopReasonMaxTokens {
					reason = llm.StopReasonLength
				}
			}
		}

		if err := stream.Err(); err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", "anthropic", "model", c.model, "error", err)
			llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("anthropic stream failed: %w", err)))
			return
		}

		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		usage.StopReason = reason
		llm.Send(ctx, chunkCh, llm.NewFinalChunk(reason, usage))
	}()

	return chunkCh, nil
}

// convertMessages moves system messages into the system blocks and merges consecutive
// turns of the same role, which the Messages API rejects. Function results are user text.
func convertMessages(messages []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var chat []anthropic.MessageParam

	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == llm.RoleSystem {
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
			continue
		}

		role := anthropic.MessageParamRoleUser
		if m.Role == llm.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}

		block := anthropic.NewTextBlock(m.Content)
		if n := len(chat); n > 0 && chat[n-1].Role == role {
			chat[n-1].Content = append(chat[n-1].Content, block)
			continue
		}
		chat = append(chat, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{block},
		})
	}
	return system, chat
}
