// Package embedding turns chunk text into fixed-dimension vectors suitable
// for cosine similarity search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pagemarkhq/pagemark/internal/config"
)

// ErrDimensionMismatch reports a vector whose length differs from the
// configured dimension. This is a precondition violation, never retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Service wraps an embedding client behind a stable contract: one text in,
// one L2-normalized vector of exactly Dimensions() floats out. Construct it
// once at startup and share it; it is read-only after creation and safe for
// concurrent use.
type Service struct {
	client Client
}

// NewService creates a new embedding service
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "openai":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return &Service{client: client}, nil
}

// NewServiceWithClient wires a pre-built client, used by tests to
// substitute a stub.
func NewServiceWithClient(client Client) *Service {
	return &Service{client: client}
}

// Embed generates a normalized embedding for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.client.Dimensions() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.client.Dimensions())
	}
	return Normalize(vec), nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// Normalize scales a vector to unit L2 norm so cosine similarity reduces to
// a dot product. A zero vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// Similarity computes cosine similarity between two vectors.
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
