package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder produces deterministic hash-based embeddings with zero
// external calls. Each word is hashed into a bucket of the vector, so texts
// sharing vocabulary land near each other under cosine similarity, which is
// enough for retrieval tests and offline development.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a MockEmbedder with the given dimension.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed returns a deterministic unit vector derived from the text's words.
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vec := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// MockGenerator produces canned grounded replies without network calls. It
// honors the prompt contract: when the prompt carries retrieved context it
// answers from the first context line, otherwise it states that it lacks
// the information.
type MockGenerator struct{}

// NewMockGenerator creates a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a deterministic response derived from the prompt.
func (g *MockGenerator) Generate(_ context.Context, prompt Prompt) (string, error) {
	_, after, found := strings.Cut(prompt.User, "CONTEXT:")
	if found {
		context, _, _ := strings.Cut(after, "QUESTION:")
		for _, line := range strings.Split(context, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				return "Based on our records: " + line, nil
			}
		}
	}
	return "I don't have that information. Please contact us directly and we will be happy to help.", nil
}
