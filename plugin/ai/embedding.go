package ai

import (
	"context"
	"math"

	"github.com/sashabaranov/go-openai"

	enginerr "github.com/lectern/lectern/internal/errors"
)

// EmbeddingService is the vector embedding service interface.
// Implementations do not retry internally; transient failures surface as
// BACKEND_TRANSIENT errors and retry is the caller's responsibility.
type EmbeddingService interface {
	// EmbedBatch generates unit-normalized vectors for multiple texts.
	// An empty input returns an empty matrix and no error.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a unit-normalized vector for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates an EmbeddingService backed by an
// OpenAI-compatible embeddings endpoint.
func NewEmbeddingService(cfg *EmbeddingConfig) EmbeddingService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &embeddingService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, enginerr.BackendTransient("create embeddings failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, enginerr.BackendTransient("embedding response size mismatch", nil)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = NormalizeL2(data.Embedding)
	}
	if s.dimensions == 0 && len(vectors) > 0 {
		s.dimensions = len(vectors[0])
	}

	return vectors, nil
}

func (s *embeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, enginerr.BackendTransient("empty embedding response", nil)
	}
	return vectors[0], nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

// NormalizeL2 scales a vector to unit length. Zero vectors are returned
// unchanged. Idempotent for vectors that are already unit-length.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the inner product of two vectors. For unit-length vectors
// this equals the cosine similarity.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
