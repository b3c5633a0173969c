package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ai-loanengine-be/pkg/tools"
)

const toolName = "language"

// Sentiment labels returned by the service.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentMixed    = "mixed"
)

// Entity is one recognized (type, value) pair.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Analysis is the normalized output of one text analysis call.
type Analysis struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Entities   []Entity `json:"entities"`
}

// Adapter analyzes free text through the Azure AI Language REST API:
// sentiment plus named-entity recognition.
type Adapter struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Client     *http.Client
	logger     *log.Logger
}

func NewAdapter(endpoint, apiKey string, timeout time.Duration, logger *log.Logger) *Adapter {
	return &Adapter{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		APIVersion: "2023-04-01",
		Client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// --- Request/Response structs (internal to this package) ---

type analyzeRequest struct {
	Kind          string        `json:"kind"`
	AnalysisInput analysisInput `json:"analysisInput"`
}

type analysisInput struct {
	Documents []inputDocument `json:"documents"`
}

type inputDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type analyzeResponse struct {
	Results struct {
		Documents []struct {
			Sentiment        string `json:"sentiment,omitempty"`
			ConfidenceScores struct {
				Positive float64 `json:"positive"`
				Neutral  float64 `json:"neutral"`
				Negative float64 `json:"negative"`
			} `json:"confidenceScores,omitempty"`
			Entities []struct {
				Text     string `json:"text"`
				Category string `json:"category"`
			} `json:"entities,omitempty"`
		} `json:"documents"`
		Errors []struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"errors"`
	} `json:"results"`
}

// Analyze returns the sentiment label with its confidence and the
// recognized entities for text.
func (a *Adapter) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tools.InvalidInput(toolName, fmt.Errorf("empty text"))
	}

	sentimentResp, err := a.call(ctx, "SentimentAnalysis", text)
	if err != nil {
		return nil, err
	}
	entityResp, err := a.call(ctx, "EntityRecognition", text)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{Sentiment: SentimentNeutral}

	if len(sentimentResp.Results.Documents) > 0 {
		doc := sentimentResp.Results.Documents[0]
		analysis.Sentiment = doc.Sentiment
		analysis.Confidence = sentimentConfidence(doc.Sentiment,
			doc.ConfidenceScores.Positive, doc.ConfidenceScores.Neutral, doc.ConfidenceScores.Negative)
	}

	if len(entityResp.Results.Documents) > 0 {
		for _, entity := range entityResp.Results.Documents[0].Entities {
			analysis.Entities = append(analysis.Entities, Entity{
				Type:  entity.Category,
				Value: entity.Text,
			})
		}
	}

	a.logger.Printf("[LANGUAGE] Sentiment: %s (%.2f), entities: %d",
		analysis.Sentiment, analysis.Confidence, len(analysis.Entities))
	return analysis, nil
}

func (a *Adapter) call(ctx context.Context, kind, text string) (*analyzeResponse, error) {
	reqPayload := analyzeRequest{
		Kind: kind,
		AnalysisInput: analysisInput{
			Documents: []inputDocument{{ID: "1", Language: "en", Text: text}},
		},
	}
	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, tools.Unavailable(toolName, fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/language/:analyze-text?api-version=%s", a.Endpoint, a.APIVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, tools.Transient(toolName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", a.APIKey)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, tools.Transient(toolName, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tools.Transient(toolName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, tools.ClassifyStatus(toolName, resp.StatusCode, string(bodyBytes))
	}

	var analyzeResp analyzeResponse
	if err := json.Unmarshal(bodyBytes, &analyzeResp); err != nil {
		return nil, tools.Unavailable(toolName, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(analyzeResp.Results.Errors) > 0 {
		return nil, tools.InvalidInput(toolName, fmt.Errorf("%s", analyzeResp.Results.Errors[0].Error.Message))
	}
	return &analyzeResp, nil
}

// sentimentConfidence picks the confidence score matching the label.
// Mixed sentiment reports the strongest single polarity.
func sentimentConfidence(label string, positive, neutral, negative float64) float64 {
	switch label {
	case SentimentPositive:
		return positive
	case SentimentNeutral:
		return neutral
	case SentimentNegative:
		return negative
	default:
		max := positive
		if neutral > max {
			max = neutral
		}
		if negative > max {
			max = negative
		}
		return max
	}
}
