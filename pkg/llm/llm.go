package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is used for all JSON handling inside package llm
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LLMUsage is the provider-neutral token accounting of one completion.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ThoughtsTokens   int    `json:"thoughts_tokens,omitempty"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage logs usage statistics in a uniform shape.
func LogUsage(ctx context.Context, model string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "Completion usage",
		"model", model,
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
		"thoughts", usage.ThoughtsTokens,
		"cached", usage.CachedTokens,
		"stop_reason", usage.StopReason,
	)
}

// LLMClient is a streaming chat backend for a single model.
type LLMClient interface {
	// Provider returns the provider name, e.g. "openai".
	Provider() string

	// StreamChat starts a completion over messages and returns its chunks.
	// An error is returned only when the request could not be started.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// IsTransientError reports whether err is worth retrying (503, rate limits, ...).
	IsTransientError(err error) bool
}

// Completer turns a conversation into the next assistant message.
// Implementations must be safe for concurrent use with independent message logs.
type Completer interface {
	Complete(ctx context.Context, model ModelSelector, messages []Message) (Message, error)
}

// FallbackClient tries several clients in order.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback", "index", i+1, "provider", client.Provider())
		}

		// At least one attempt per client
		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.InfoContext(ctx, "Retrying provider", "index", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			ch, err := client.StreamChat(ctx, messages)
			if err == nil {
				return ch, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "index", i+1, "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "index", i+1, "error", err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}

// IsTransientError always reports false: a fallback group failing means every member failed.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}

// IsTransientMessage classifies an error by its text: network failures, timeouts,
// rate limits and temporary server failures are transient.
func IsTransientMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var transientMarkers = []string{
	"context deadline exceeded",
	"connection refused",
	"connection reset",
	"timeout",
	"429",
	"rate limit",
	"500 internal",
	"502 bad gateway",
	"503 service unavailable",
	"overloaded",
	"unavailable",
}

// Send delivers chunk unless ctx is done first. Providers stop streaming when it returns false.
func Send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
