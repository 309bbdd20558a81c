package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	useThought   bool
	maxTokens    int
	buffer       int
	debugEnabled bool
}

// ClientConfig holds the settings of one Gemini model.
type ClientConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	UseThought bool
	MaxTokens  int
	Buffer     int
	Debug      bool
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(ctx context.Context, cfg ClientConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		model:        cfg.Model,
		useThought:   cfg.UseThought,
		maxTokens:    cfg.MaxTokens,
		buffer:       cfg.Buffer,
		debugEnabled: cfg.Debug,
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// StreamChat implements llm.LLMClient.StreamChat. It returns once the first response or
// error arrived.
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	contents, systemInstruction := convertMessages(messages)

	genCfg := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}
	if g.useThought {
		genCfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	if g.maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(g.maxTokens)
	}

	chunkCh := make(chan llm.StreamChunk, g.buffer)
	startCh := make(chan error, 1)

	slog.DebugContext(ctx, "Streaming", "provider", "gemini", "model", g.model)

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, g.Provider(), g.debugEnabled)
		defer debugger.Close()

		started := false
		var usage *llm.LLMUsage
		reason := llm.StopReasonStop

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, genCfg) {
			if resp != nil {
				debugger.WriteJSON(resp)
			}
			if err != nil && resp == nil {
				slog.ErrorContext(ctx, "Stream error", "provider", "gemini", "model", g.model, "error", err)
				if !started {
					startCh <- err
					return
				}
				llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("stream interrupted: %w", err)))
				return
			}

			if !started {
				started = true
				startCh <- nil
			}

			if u := resp.UsageMetadata; u != nil {
				usage = &llm.LLMUsage{
					PromptTokens:     int(u.PromptTokenCount),
					CompletionTokens: int(u.CandidatesTokenCount),
					TotalTokens:      int(u.TotalTokenCount),
					ThoughtsTokens:   int(u.ThoughtsTokenCount),
					CachedTokens:     int(u.CachedContentTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate.FinishReason == genai.FinishReasonMaxTokens {
					reason = llm.StopReasonLength
				}
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					chunk := llm.NewTextChunk(part.Text)
					if part.Thought {
						chunk = llm.NewThinkingChunk(part.Text)
					}
					if !llm.Send(ctx, chunkCh, chunk) {
						return
					}
				}
			}
		}

		if !started {
			startCh <- nil
		}
		if usage != nil {
			usage.StopReason = reason
		}
		llm.Send(ctx, chunkCh, llm.NewFinalChunk(reason, usage))
	}()

	select {
	case err := <-startCh:
		if err != nil {
			return nil, err
		}
		return chunkCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// convertMessages splits off system messages into the system instruction. Function results
// are sent as user text.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemParts []*genai.Part

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var systemInstruction *genai.Content
	if len(systemParts) > 0 {
		systemInstruction = &genai.Content{Parts: systemParts}
	}
	return contents, systemInstruction
}

// IsTransientError implements the llm.LLMClient interface
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	return llm.IsTransientMessage(err) || strings.Contains(strings.ToLower(err.Error()), "resource exhausted")
}
