package backendclient

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/MikeSquared-Agency/embedding-backend/internal/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// Provider generates embeddings by calling a running backend's text endpoint.
type Provider struct {
	client *Client
	model  string
}

// NewProvider creates a provider embedding with model through client.
func NewProvider(client *Client, model string) *Provider {
	return &Provider{client: client, model: model}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "backend"
}

// Embed generates an embedding using the backend.
func (p *Provider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := p.client.EmbedText(ctx, p.model, []string{text})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("calling backend: %w", err)
	}
	if len(vecs) == 0 {
		return pgvector.Vector{}, fmt.Errorf("no embeddings returned")
	}
	return pgvector.NewVector(embeddings.ToFloat32(vecs[0])), nil
}
