package factory

import (
	"fmt"

	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/llm/ollama"
	"ai-companion-be/pkg/llm/openai"
)

// ProviderConfig carries the per-provider settings the factory needs.
type ProviderConfig struct {
	ModelName string
	BaseURL   string
	APIKey    string
}

func NewLLMProvider(providerType string, cfg ProviderConfig) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.ModelName), nil
	case "openai":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
