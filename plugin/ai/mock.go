package ai

import (
	"context"
	"sync"

	enginerr "github.com/lectern/lectern/internal/errors"
)

// MockEmbedder is a deterministic EmbeddingService for testing. Texts with
// an entry in Vectors embed to that vector; all other texts embed to a
// byte-histogram vector. Equal texts always embed equally.
type MockEmbedder struct {
	mu      sync.Mutex
	Dim     int
	Vectors map[string][]float32
	Calls   int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &MockEmbedder{Dim: dim, Vectors: make(map[string][]float32)}
}

// Set pins the embedding returned for an exact text.
func (m *MockEmbedder) Set(text string, v []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Vectors[text] = v
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.Vectors[text]; ok {
			vectors[i] = NormalizeL2(v)
			continue
		}
		v := make([]float32, m.Dim)
		for j := 0; j < len(text); j++ {
			v[int(text[j])%m.Dim]++
		}
		vectors[i] = NormalizeL2(v)
	}
	return vectors, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.Dim
}

// MockLLM is a scripted LLMService for testing. It records prompts and can
// fail the first FailFirst calls, or every call when AlwaysFail is set.
type MockLLM struct {
	mu         sync.Mutex
	Response   string
	FailFirst  int
	AlwaysFail bool
	CallCount  int
	Prompts    []string
}

func (m *MockLLM) Chat(_ context.Context, messages []Message) (string, error) {
	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	return m.respond(prompt)
}

func (m *MockLLM) Answer(_ context.Context, query string, contexts []Context) (string, error) {
	return m.respond(query + "\n" + FormatContexts(contexts))
}

func (m *MockLLM) respond(prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	m.Prompts = append(m.Prompts, prompt)

	if m.AlwaysFail || m.CallCount <= m.FailFirst {
		return "", enginerr.BackendTransient("mock backend failure", nil)
	}
	if m.Response == "" {
		return "mock response", nil
	}
	return m.Response, nil
}

// Count returns the number of calls received.
func (m *MockLLM) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

var (
	_ EmbeddingService = (*MockEmbedder)(nil)
	_ LLMService       = (*MockLLM)(nil)
)
