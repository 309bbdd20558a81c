package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// OllamaClient Ollama API client
type OllamaClient struct {
	client       *api.Client
	model        string
	options      map[string]any
	buffer       int
	debugEnabled bool
}

// NewOllamaClient creates an Ollama client for model served at baseURL.
func NewOllamaClient(model, baseURL string, options map[string]any, sys *SystemSettings) (*OllamaClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// Local models can take minutes to load, so no client timeout is imposed.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{
		Transport: &JSONFixingRoundTripper{Proxied: transport},
	}

	slog.Debug("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:       api.NewClient(u, httpClient),
		model:        model,
		options:      options,
		buffer:       sys.Buffer,
		debugEnabled: sys.Debug,
	}, nil
}

// SystemSettings are the engine-wide parameters an Ollama client uses.
type SystemSettings struct {
	Buffer int
	Debug  bool
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// StreamChat returns once the first response arrived, so load failures surface as errors
// the fallback chain can retry.
func (o *OllamaClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	streamVal := true
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: convertMessages(messages),
		Options:  o.options,
		Stream:   &streamVal,
	}

	chunkCh := make(chan llm.StreamChunk, o.buffer)
	startCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, o.Provider(), o.debugEnabled)
		defer debugger.Close()

		started := false
		done := false
		var thoughts int

		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			debugger.WriteJSON(resp)
			if !started {
				started = true
				startCh <- nil
			}

			if resp.Message.Thinking != "" {
				thoughts++
				if !llm.Send(ctx, chunkCh, llm.NewThinkingChunk(resp.Message.Thinking)) {
					return ctx.Err()
				}
			}
			if resp.Message.Content != "" {
				if !llm.Send(ctx, chunkCh, llm.NewTextChunk(resp.Message.Content)) {
					return ctx.Err()
				}
			}

			if resp.Done {
				done = true
				if resp.DoneReason == llm.StopReasonLength {
					slog.WarnContext(ctx, "Response truncated due to length", "provider", "ollama", "model", o.model)
				}
				usage := &llm.LLMUsage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
					ThoughtsTokens:   thoughts,
					StopReason:       resp.DoneReason,
				}
				llm.Send(ctx, chunkCh, llm.NewFinalChunk(resp.DoneReason, usage))
			}
			return nil
		})

		if !started {
			startCh <- err
			if err != nil {
				return
			}
		}
		if err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", "ollama", "model", o.model, "error", err)
			llm.Send(ctx, chunkCh, llm.NewErrorChunk(fmt.Errorf("stream interrupted: %w", err)))
			return
		}
		if !done {
			llm.Send(ctx, chunkCh, llm.NewFinalChunk(llm.StopReasonStop, nil))
		}
	}()

	select {
	case err := <-startCh:
		if err != nil {
			return nil, fmt.Errorf("error loading model %s: %w", o.model, err)
		}
		return chunkCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// convertMessages maps messages to the Ollama chat format. Function results become user turns.
func convertMessages(messages []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == llm.RoleFunction {
			role = string(llm.RoleUser)
		}
		out = append(out, api.Message{Role: role, Content: m.Content})
	}
	return out
}

// IsTransientError implements the llm.LLMClient interface
func (o *OllamaClient) IsTransientError(err error) bool {
	return llm.IsTransientMessage(err)
}
