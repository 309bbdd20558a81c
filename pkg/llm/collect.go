package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Collect drains a chunk stream into one assistant message.
// The first error chunk aborts collection and is returned.
func Collect(ctx context.Context, chunkCh <-chan StreamChunk) (Message, *LLMUsage, error) {
	var text strings.Builder
	var thinking strings.Builder
	var usage *LLMUsage

	for {
		select {
		case <-ctx.Done():
			return Message{}, nil, ctx.Err()
		case chunk, ok := <-chunkCh:
			if !ok {
				return finishCollect(ctx, text.String(), thinking.String(), usage)
			}
			if chunk.RawError != nil {
				return Message{}, nil, chunk.RawError
			}
			text.WriteString(chunk.Text)
			thinking.WriteString(chunk.Thinking)
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.IsFinal {
				if chunk.FinishReason == StopReasonLength {
					slog.WarnContext(ctx, "Response truncated due to length")
				}
				return finishCollect(ctx, text.String(), thinking.String(), usage)
			}
		}
	}
}

func finishCollect(ctx context.Context, text, thinking string, usage *LLMUsage) (Message, *LLMUsage, error) {
	if strings.TrimSpace(thinking) != "" {
		slog.DebugContext(ctx, "Captured thinking", "content", thinking)
	}
	if text == "" {
		return Message{}, usage, fmt.Errorf("empty completion")
	}
	return NewAssistantMessage(text), usage, nil
}
