package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"codegraph/internal/adapter/analyzer"
)

// MockEmbedder hashes terms into a fixed number of buckets. Texts sharing
// terms get similar vectors, which is enough for offline runs and tests.
type MockEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer(true)}
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.vector(text), nil
}

func (m *MockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dimension)
	for _, tok := range m.tokenizer.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		v[int(sum%uint32(m.dimension))] += sign
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (m *MockEmbedder) Dimension() int { return m.dimension }

func (m *MockEmbedder) ModelName() string { return "mock" }
