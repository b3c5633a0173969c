package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ai-loanengine-be/internal/config"
	"ai-loanengine-be/pkg/embedding"
	"ai-loanengine-be/pkg/tools/policysearch"
	"ai-loanengine-be/pkg/utils"
)

// Seeds the lending-policy search index from a directory of policy
// documents (.md / .txt). Each file is split into overlapping chunks,
// embedded, and uploaded. Run once per policy revision:
//
//	go run ./cmd/seedpolicies -dir ./policies
const (
	chunkSize    = 1200
	chunkOverlap = 150
	batchSize    = 20
)

func main() {
	dir := flag.String("dir", "./policies", "directory containing policy documents")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}
	cfg := config.Load()

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		provider = embedding.NewAzureProvider(
			cfg.Azure.OpenAIEndpoint,
			cfg.Azure.OpenAIKey,
			cfg.Azure.OpenAIEmbeddingDeployment,
			cfg.Azure.OpenAIAPIVersion,
		)
	}

	adapter := policysearch.NewAdapter(
		cfg.Azure.SearchEndpoint,
		cfg.Azure.SearchKey,
		cfg.Azure.SearchIndex,
		provider,
		time.Duration(cfg.Tools.TimeoutSeconds)*time.Second,
		log.Default(),
	)

	ctx := context.Background()
	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read policy directory %s: %v", *dir, err)
	}

	var batch []policysearch.PolicyDocument
	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".md" && ext != ".txt" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(*dir, entry.Name()))
		if err != nil {
			log.Fatalf("Failed to read %s: %v", entry.Name(), err)
		}

		section := strings.TrimSuffix(entry.Name(), ext)
		chunks := utils.SplitText(string(content), chunkSize, chunkOverlap)
		log.Printf("Processing %s: %d chunks", entry.Name(), len(chunks))

		for i, chunk := range chunks {
			trimmed := strings.TrimSpace(chunk)
			if trimmed == "" {
				continue
			}
			vector, err := provider.Generate(ctx, trimmed)
			if err != nil {
				log.Fatalf("Failed to embed chunk %d of %s: %v", i, entry.Name(), err)
			}
			batch = append(batch, policysearch.PolicyDocument{
				ID:      fmt.Sprintf("%s-%03d", sanitizeID(section), i),
				Section: section,
				Content: trimmed,
				Vector:  vector,
			})
			total++

			if len(batch) >= batchSize {
				flush(ctx, adapter, batch)
				batch = batch[:0]
			}
		}
	}
	flush(ctx, adapter, batch)

	log.Printf("✅ Seeded %d policy chunks into index %s", total, cfg.Azure.SearchIndex)
}

func flush(ctx context.Context, adapter *policysearch.Adapter, batch []policysearch.PolicyDocument) {
	if len(batch) == 0 {
		return
	}
	if err := adapter.Index(ctx, batch); err != nil {
		log.Fatalf("Failed to index batch: %v", err)
	}
}

// sanitizeID keeps Azure Search document keys to letters, digits and dashes.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
