package docintel

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

	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools"
)

const toolName = "docintel"

// Document categories accepted as hints on upload.
const (
	CategoryBankStatement      = "bank_statement"
	CategoryInvoice            = "invoice"
	CategoryFinancialStatement = "financial_statement"
	CategoryOther              = "other"
)

// modelMap maps a category hint to the vendor's prebuilt extraction model.
var modelMap = map[string]string{
	CategoryBankStatement:      "prebuilt-bankStatement.us",
	CategoryInvoice:            "prebuilt-invoice",
	CategoryFinancialStatement: "prebuilt-layout",
	CategoryOther:              "prebuilt-layout",
}

// Categories returns the supported category hints.
func Categories() []string {
	return []string{CategoryBankStatement, CategoryInvoice, CategoryFinancialStatement, CategoryOther}
}

// ValidCategory reports whether hint names a supported category.
func ValidCategory(hint string) bool {
	_, ok := modelMap[hint]
	return ok
}

// Adapter analyzes document bytes through the Azure Document Intelligence
// REST API and normalizes the result into a store.DocumentFact. It never
// touches session state.
type Adapter struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Client     *http.Client
	logger     *log.Logger

	pollInterval time.Duration
}

func NewAdapter(endpoint, apiKey string, timeout time.Duration, logger *log.Logger) *Adapter {
	return &Adapter{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		APIVersion: "2024-02-29-preview",
		Client: &http.Client{
			Timeout: timeout,
		},
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

// --- Vendor response structs (internal to this package) ---

type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content   string `json:"content"`
		Documents []struct {
			Fields map[string]fieldResult `json:"fields"`
		} `json:"documents"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type fieldResult struct {
	Type          string         `json:"type"`
	ValueString   string         `json:"valueString,omitempty"`
	ValueNumber   float64        `json:"valueNumber,omitempty"`
	ValueDate     string         `json:"valueDate,omitempty"`
	Content       string         `json:"content,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
	ValueCurrency *currencyValue `json:"valueCurrency,omitempty"`
}

type currencyValue struct {
	Amount float64 `json:"amount"`
}

// Analyze submits the document and polls until extraction completes.
// Empty content or an unsupported category is InvalidInput; timeouts and
// network failures are Transient.
func (a *Adapter) Analyze(ctx context.Context, content []byte, categoryHint, filename string) (*store.DocumentFact, error) {
	if len(content) == 0 {
		return nil, tools.InvalidInput(toolName, fmt.Errorf("empty document"))
	}
	modelID, ok := modelMap[categoryHint]
	if !ok {
		return nil, tools.InvalidInput(toolName, fmt.Errorf("unsupported category: %s", categoryHint))
	}

	a.logger.Printf("[DOCINTEL] Analyzing %s with model %s (%d bytes)", filename, modelID, len(content))

	operationURL, err := a.submit(ctx, modelID, content)
	if err != nil {
		return nil, err
	}

	result, err := a.poll(ctx, operationURL)
	if err != nil {
		return nil, err
	}

	fact := a.normalize(result, categoryHint, filename)
	a.logger.Printf("[DOCINTEL] Extracted %d fields from %s", len(fact.Fields), filename)
	return fact, nil
}

func (a *Adapter) submit(ctx context.Context, modelID string, content []byte) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		a.Endpoint, modelID, a.APIVersion)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(content))
	if err != nil {
		return "", tools.Transient(toolName, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", a.APIKey)

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", tools.Transient(toolName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", tools.ClassifyStatus(toolName, resp.StatusCode, string(bodyBytes))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", tools.Unavailable(toolName, fmt.Errorf("missing Operation-Location header"))
	}
	return operationURL, nil
}

func (a *Adapter) poll(ctx context.Context, operationURL string) (*analyzeResult, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, tools.Transient(toolName, ctx.Err())
		case <-time.After(a.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
		if err != nil {
			return nil, tools.Transient(toolName, err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", a.APIKey)

		resp, err := a.Client.Do(req)
		if err != nil {
			return nil, tools.Transient(toolName, err)
		}

		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, tools.Transient(toolName, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, tools.ClassifyStatus(toolName, resp.StatusCode, string(bodyBytes))
		}

		var result analyzeResult
		if err := json.Unmarshal(bodyBytes, &result); err != nil {
			return nil, tools.Unavailable(toolName, fmt.Errorf("unmarshal result: %w", err))
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			msg := "analysis failed"
			if result.Error != nil {
				msg = result.Error.Message
				// InvalidContent means the file itself is unreadable.
				if strings.HasPrefix(result.Error.Code, "Invalid") {
					return nil, tools.InvalidInput(toolName, fmt.Errorf("%s", msg))
				}
			}
			return nil, tools.Unavailable(toolName, fmt.Errorf("%s", msg))
		}
		// running / notStarted: keep polling
	}
}

func (a *Adapter) normalize(result *analyzeResult, category, filename string) *store.DocumentFact {
	fields := make(map[string]store.FieldValue)
	for _, doc := range result.AnalyzeResult.Documents {
		for name, field := range doc.Fields {
			fields[name] = normalizeField(field)
		}
	}

	return &store.DocumentFact{
		Category:   category,
		Filename:   filename,
		Fields:     fields,
		AnalyzedAt: time.Now(),
	}
}

func normalizeField(field fieldResult) store.FieldValue {
	switch field.Type {
	case "currency":
		amount := field.ValueNumber
		if field.ValueCurrency != nil {
			amount = field.ValueCurrency.Amount
		}
		return store.FieldValue{Kind: "amount", Amount: amount, Text: field.Content, Confidence: field.Confidence}
	case "number", "integer":
		return store.FieldValue{Kind: "amount", Amount: field.ValueNumber, Text: field.Content, Confidence: field.Confidence}
	case "date":
		return store.FieldValue{Kind: "date", Text: field.ValueDate, Confidence: field.Confidence}
	default:
		text := field.ValueString
		if text == "" {
			text = field.Content
		}
		return store.FieldValue{Kind: "text", Text: text, Confidence: field.Confidence}
	}
}
