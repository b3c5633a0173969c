package factory

import (
	"fmt"

	"ai-loanengine-be/pkg/llm"
	"ai-loanengine-be/pkg/llm/azure"
	"ai-loanengine-be/pkg/llm/ollama"
)

type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

func NewLLMProvider(providerType, modelName, ollamaBaseURL string, azureCfg AzureConfig) (llm.LLMProvider, error) {
	switch providerType {
	case "azure":
		if azureCfg.Endpoint == "" || azureCfg.APIKey == "" {
			return nil, fmt.Errorf("azure provider requires endpoint and api key")
		}
		return azure.NewAzureProvider(azureCfg.Endpoint, azureCfg.APIKey, azureCfg.Deployment, azureCfg.APIVersion), nil
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
