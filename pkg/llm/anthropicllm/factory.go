package anthropicllm

import (
	"log/slog"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/llm"
)

// AnthropicFactory handles creation of Anthropic Clients
type AnthropicFactory struct{}

// Create implements ProviderFactory. Keys are assigned to models round-robin.
func (f *AnthropicFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	var clients []llm.LLMClient
	for i, model := range cfg.Models {
		apiKey := ""
		if len(cfg.APIKeys) > 0 {
			apiKey = cfg.APIKeys[i%len(cfg.APIKeys)]
		}

		client, err := NewClient(ClientConfig{
			APIKey:    apiKey,
			Model:     model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: sys.MaxTokens,
			Buffer:    sys.InternalChannelBuffer,
			Debug:     sys.DebugChunks,
			Options:   cfg.Options,
		})
		if err != nil {
			slog.Error("Failed to create Anthropic client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("anthropic", &AnthropicFactory{})
}
