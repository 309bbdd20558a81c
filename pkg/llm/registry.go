package llm

import (
	"github.com/skarllot/flow-pair/pkg/config"
)

// ProviderGroupConfig is one entry of the "llm" config array.
type ProviderGroupConfig struct {
	Type     string         `json:"type"`
	Selector ModelSelector  `json:"selector,omitempty"`
	APIKeys  []string       `json:"api_keys,omitempty"`
	Models   []string       `json:"models"`
	BaseURL  string         `json:"base_url,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// ProviderFactory builds the clients of one provider group.
type ProviderFactory interface {
	// Create returns one client per model (and key, where the provider rotates keys).
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider registers a provider factory under name. Called from provider init().
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered under name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}
