package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"
)

// ErrInvalidDimension is returned when a non-positive dimension is requested.
var ErrInvalidDimension = errors.New("embedding_dim must be > 0")

// Generate derives a reproducible vector of dim values in [-1, 1) from seed.
//
// Blocks are SHA-256(seed || uint32le(counter)) for counter = 0, 1, ...; each
// 4-byte little-endian word n of a block becomes n/2^32*2-1. The last block may
// be only partially consumed. Consumers rely on these exact values, so the
// derivation must not change.
func Generate(seed []byte, dim int) ([]float64, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}

	buf := make([]byte, len(seed)+4)
	copy(buf, seed)

	values := make([]float64, 0, dim)
	for counter := uint32(0); len(values) < dim; counter++ {
		binary.LittleEndian.PutUint32(buf[len(seed):], counter)
		digest := sha256.Sum256(buf)
		for off := 0; off < len(digest) && len(values) < dim; off += 4 {
			n := binary.LittleEndian.Uint32(digest[off : off+4])
			values = append(values, float64(n)/(1<<32)*2-1)
		}
	}
	return values, nil
}

// DeterministicProvider embeds text in-process with Generate. The result for a
// given text is identical to what the HTTP backend returns for a text model of
// the same dimension.
type DeterministicProvider struct {
	dim int
}

// NewDeterministicProvider creates a provider producing dim-length vectors.
func NewDeterministicProvider(dim int) (*DeterministicProvider, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("deterministic provider: %w", ErrInvalidDimension)
	}
	return &DeterministicProvider{dim: dim}, nil
}

// Name returns the provider name.
func (p *DeterministicProvider) Name() string {
	return "deterministic"
}

// Embed generates a pseudo-embedding from the UTF-8 bytes of text.
func (p *DeterministicProvider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if err := ctx.Err(); err != nil {
		return pgvector.Vector{}, err
	}
	vals, err := Generate([]byte(text), p.dim)
	if err != nil {
		return pgvector.Vector{}, err
	}
	return pgvector.NewVector(ToFloat32(vals)), nil
}

// ToFloat32 narrows a generated vector for float32 consumers.
func ToFloat32(vals []float64) []float32 {
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}
