package policysearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"ai-loanengine-be/pkg/embedding"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools"
)

const toolName = "policysearch"

// Adapter performs semantic search over the lending-policy index through
// the Azure AI Search REST API. The query is embedded first, then matched
// against the index's content vector field.
type Adapter struct {
	Endpoint   string
	APIKey     string
	IndexName  string
	APIVersion string
	Client     *http.Client

	embedder embedding.EmbeddingProvider
	logger   *log.Logger
}

func NewAdapter(endpoint, apiKey, indexName string, embedder embedding.EmbeddingProvider, timeout time.Duration, logger *log.Logger) *Adapter {
	if indexName == "" {
		indexName = "lending-policies"
	}
	return &Adapter{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		IndexName:  indexName,
		APIVersion: "2023-11-01",
		Client: &http.Client{
			Timeout: timeout,
		},
		embedder: embedder,
		logger:   logger,
	}
}

// --- Request/Response structs (internal to this package) ---

type searchRequest struct {
	Search        *string       `json:"search"`
	VectorQueries []vectorQuery `json:"vectorQueries"`
	Select        string        `json:"select"`
	Top           int           `json:"top"`
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchResponse struct {
	Value []struct {
		Content string  `json:"content"`
		Title   string  `json:"title"`
		Score   float64 `json:"@search.score"`
	} `json:"value"`
}

// Search returns up to topK policy clauses ranked by relevance descending.
// Ties are broken by section identifier ascending so repeated queries
// always produce the same ordering.
func (a *Adapter) Search(ctx context.Context, query string, topK int) ([]store.PolicyClause, error) {
	if strings.TrimSpace(query) == "" {
		return nil, tools.InvalidInput(toolName, fmt.Errorf("empty query"))
	}
	if topK <= 0 {
		topK = 5
	}

	vector, err := a.embedder.Generate(ctx, query)
	if err != nil {
		return nil, tools.Transient(toolName, fmt.Errorf("embed query: %w", err))
	}

	reqPayload := searchRequest{
		Search: nil,
		VectorQueries: []vectorQuery{{
			Kind:   "vector",
			Vector: vector,
			Fields: "content_vector",
			K:      topK,
		}},
		Select: "title,content",
		Top:    topK,
	}
	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, tools.Unavailable(toolName, fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", a.Endpoint, a.IndexName, a.APIVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, tools.Transient(toolName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.APIKey)

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

	var searchResp searchResponse
	if err := json.Unmarshal(bodyBytes, &searchResp); err != nil {
		return nil, tools.Unavailable(toolName, fmt.Errorf("unmarshal response: %w", err))
	}

	clauses := make([]store.PolicyClause, 0, len(searchResp.Value))
	for _, hit := range searchResp.Value {
		clauses = append(clauses, store.PolicyClause{
			Content: hit.Content,
			Section: hit.Title,
			Score:   hit.Score,
		})
	}
	rankClauses(clauses)

	a.logger.Printf("[POLICYSEARCH] %d clauses for query %q", len(clauses), truncate(query, 60))
	return clauses, nil
}

// PolicyDocument is one indexable chunk of policy text.
type PolicyDocument struct {
	ID      string
	Section string
	Content string
	Vector  []float32
}

type indexRequest struct {
	Value []indexDocument `json:"value"`
}

type indexDocument struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ContentVector []float32 `json:"content_vector"`
}

// Index uploads policy chunks into the search index. Used by the seeding
// command, never by the conversational path.
func (a *Adapter) Index(ctx context.Context, docs []PolicyDocument) error {
	if len(docs) == 0 {
		return nil
	}

	payload := indexRequest{Value: make([]indexDocument, 0, len(docs))}
	for _, doc := range docs {
		payload.Value = append(payload.Value, indexDocument{
			Action:        "mergeOrUpload",
			ID:            doc.ID,
			Title:         doc.Section,
			Content:       doc.Content,
			ContentVector: doc.Vector,
		})
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return tools.Unavailable(toolName, fmt.Errorf("marshal index request: %w", err))
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", a.Endpoint, a.IndexName, a.APIVersion)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return tools.Transient(toolName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.APIKey)

	resp, err := a.Client.Do(req)
	if err != nil {
		return tools.Transient(toolName, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return tools.Transient(toolName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return tools.ClassifyStatus(toolName, resp.StatusCode, string(bodyBytes))
	}

	a.logger.Printf("[POLICYSEARCH] Indexed %d documents into %s", len(docs), a.IndexName)
	return nil
}

// rankClauses sorts by score descending, then by section ascending.
func rankClauses(clauses []store.PolicyClause) {
	sort.SliceStable(clauses, func(i, j int) bool {
		if clauses[i].Score != clauses[j].Score {
			return clauses[i].Score > clauses[j].Score
		}
		return clauses[i].Section < clauses[j].Section
	})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
