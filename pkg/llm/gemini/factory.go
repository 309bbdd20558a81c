package gemini

import (
	"context"
	"fmt"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/llm"
)

// GeminiFactory handles creation of Gemini Clients
type GeminiFactory struct{}

// Create implements ProviderFactory. Every model is paired with every key, models first.
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini group has no api_keys")
	}

	useThought := false
	if effort, ok := cfg.Options["thinking_effort"].(string); ok && effort != "" && effort != "off" {
		useThought = true
	}

	var clients []llm.LLMClient
	for _, model := range cfg.Models {
		for _, key := range cfg.APIKeys {
			client, err := NewGeminiClient(context.Background(), ClientConfig{
				APIKey:     key,
				Model:      model,
				BaseURL:    cfg.BaseURL,
				UseThought: useThought,
				MaxTokens:  sys.MaxTokens,
				Buffer:     sys.InternalChannelBuffer,
				Debug:      sys.DebugChunks,
			})
			if err != nil {
				return nil, err
			}
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
