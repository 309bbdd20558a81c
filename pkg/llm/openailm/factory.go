package openailm

import (
	"fmt"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI Clients
type OpenAIFactory struct{}

// Create implements ProviderFactory. Keys are assigned to models round-robin.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("openai group has no models")
	}

	var clients []llm.LLMClient
	for i, model := range cfg.Models {
		apiKey := ""
		if len(cfg.APIKeys) > 0 {
			apiKey = cfg.APIKeys[i%len(cfg.APIKeys)]
		}

		clients = append(clients, NewClient(ClientConfig{
			Provider:  "openai",
			APIKey:    apiKey,
			Model:     model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: sys.MaxTokens,
			Buffer:    sys.InternalChannelBuffer,
			Debug:     sys.DebugChunks,
			Options:   cfg.Options,
		}))
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
