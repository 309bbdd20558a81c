package llm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/skarllot/flow-pair/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// NewFromConfig builds a Router from the raw "llm" config array.
// Groups are bucketed by selector; a selector with several clients gets a FallbackClient.
func NewFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (*Router, error) {
	if rawLLM == nil {
		return nil, fmt.Errorf("missing 'llm' config")
	}
	if system == nil {
		system = config.DefaultSystemConfig()
	}

	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}

	buckets := make(map[ModelSelector][]LLMClient)
	for _, group := range groups {
		selector := group.Selector
		if selector == "" {
			selector = ModelDefault
		}
		slog.Debug("Loading LLM group", "type", group.Type, "selector", selector, "models", len(group.Models))

		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type)
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}
		buckets[selector] = append(buckets[selector], clients...)
	}

	routes := make(map[ModelSelector]LLMClient, len(buckets))
	for selector, clients := range buckets {
		if len(clients) == 0 {
			continue
		}
		if len(clients) == 1 {
			routes[selector] = clients[0]
			continue
		}
		routes[selector] = &FallbackClient{
			Clients:    clients,
			MaxRetries: system.MaxRetries,
			RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
		}
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}

	slog.Debug("LLM routes initialized", "selectors", len(routes))
	return NewRouter(routes, time.Duration(system.LLMTimeoutMs)*time.Millisecond), nil
}
