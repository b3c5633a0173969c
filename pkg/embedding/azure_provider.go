package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AzureProvider implements EmbeddingProvider against an Azure OpenAI
// embedding deployment (e.g., text-embedding-ada-002).
type AzureProvider struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Client     *http.Client
}

var _ EmbeddingProvider = &AzureProvider{}

func NewAzureProvider(endpoint, apiKey, deployment, apiVersion string) *AzureProvider {
	if apiVersion == "" {
		apiVersion = "2024-06-01"
	}
	return &AzureProvider{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Deployment: deployment,
		APIVersion: apiVersion,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type azureEmbeddingRequest struct {
	Input string `json:"input"`
}

type azureEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AzureProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(azureEmbeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		p.Endpoint, p.Deployment, p.APIVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure embedding error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var embResp azureEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &embResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("azure embedding error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("azure embedding returned no data")
	}

	return embResp.Data[0].Embedding, nil
}
