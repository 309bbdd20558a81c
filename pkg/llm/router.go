package llm

import (
	"context"
	"fmt"
	"time"
)

// Router is the Completer used by the chat engine. It maps a ModelSelector to a streaming
// client and collects the stream into a single assistant message.
type Router struct {
	routes  map[ModelSelector]LLMClient
	timeout time.Duration
}

// NewRouter creates a router. A zero timeout leaves deadlines to the caller's context.
func NewRouter(routes map[ModelSelector]LLMClient, timeout time.Duration) *Router {
	return &Router{routes: routes, timeout: timeout}
}

// Client returns the client serving model, falling back to ModelDefault.
func (r *Router) Client(model ModelSelector) (LLMClient, bool) {
	if c, ok := r.routes[model]; ok {
		return c, true
	}
	c, ok := r.routes[ModelDefault]
	return c, ok
}

// Complete implements Completer.
func (r *Router) Complete(ctx context.Context, model ModelSelector, messages []Message) (Message, error) {
	client, ok := r.Client(model)
	if !ok {
		return Message{}, fmt.Errorf("no client configured for model %q", model)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	chunkCh, err := client.StreamChat(ctx, messages)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", client.Provider(), err)
	}

	msg, usage, err := Collect(ctx, chunkCh)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", client.Provider(), err)
	}
	LogUsage(ctx, client.Provider(), usage)
	return msg, nil
}
