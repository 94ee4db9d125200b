// Package embeddings derives deterministic pseudo-embeddings and exposes them
// behind a swappable provider interface.
package embeddings

import (
	"context"

	pgvector "github.com/pgvector/pgvector-go"
)

// Provider generates text embeddings.
type Provider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) (pgvector.Vector, error)

	// Name returns the provider name for logging.
	Name() string
}
