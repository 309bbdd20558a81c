package config

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AppName is used for the config directory and file names.
const AppName = "flow-pair"

// Config is the application configuration stored in config.json.
type Config struct {
	// LLM holds the provider groups as raw JSON; package llm decodes it.
	LLM jsoniter.RawMessage `json:"llm"`
	// SystemPrompt, when set, is appended to the built-in system instruction of every flow.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// History selects where conversation logs and reports are persisted.
	History HistoryConfig `json:"history"`
}

// HistoryConfig selects the history store.
type HistoryConfig struct {
	// Driver is "file" (default) or "sqlite".
	Driver string `json:"driver,omitempty"`
	// Path is a directory for "file" and a database file for "sqlite".
	Path string `json:"path,omitempty"`
}

// Validate ensures the configuration contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	switch c.History.Driver {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("unknown history driver %q", c.History.Driver)
	}
	return nil
}

// SystemConfig holds engine-level technical parameters, stored in system.json.
type SystemConfig struct {
	// MaxRetries is the number of attempts per provider on transient errors.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the linear back-off step between attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs bounds a single completion call.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// OllamaDefaultURL is used when an ollama group has no base_url.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// InternalChannelBuffer is the buffer size of provider chunk channels.
	InternalChannelBuffer int `json:"internal_channel_buffer"`
	// MaxTokens is the output budget for providers that require one.
	MaxTokens int `json:"max_tokens"`
	// DebugChunks dumps raw provider events under debug/chunks.
	DebugChunks bool `json:"debug_chunks"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"log_level"`
}

// DefaultSystemConfig returns the settings used when system.json is missing or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:            3,
		RetryDelayMs:          500,
		LLMTimeoutMs:          300000,
		OllamaDefaultURL:      "http://localhost:11434",
		InternalChannelBuffer: 100,
		MaxTokens:             4096,
		LogLevel:              "info",
	}
}

// DefaultPath returns <UserConfigDir>/flow-pair/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, AppName, "config.json"), nil
}

// Load reads the application config at path and the optional system.json beside it.
func Load(path string) (*Config, *SystemConfig, error) {
	appFile, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	dir := filepath.Dir(path)
	if cfg.History.Driver == "" {
		cfg.History.Driver = "file"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(dir, "history")
		if cfg.History.Driver == "sqlite" {
			cfg.History.Path = filepath.Join(dir, "history.db")
		}
	}

	sysCfg := LoadSystemConfig(filepath.Join(dir, "system.json"))

	return &cfg, sysCfg, nil
}

// LoadSystemConfig loads system settings, returning defaults if it fails.
// Fields absent from the file keep their default values.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := json.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig()
	}

	return cfg
}
