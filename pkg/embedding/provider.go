package embedding

import "context"

// EmbeddingProvider defines the interface for generating text embeddings.
// The policy-search adapter embeds the user query before the vector call.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
