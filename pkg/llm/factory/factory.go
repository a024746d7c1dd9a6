package factory

import (
	"fmt"
	"time"

	"codeframe-be/pkg/llm"
	"codeframe-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
