package memory

import (
	"context"
	"math/rand/v2"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultEmbeddingDimension is the vector length produced by the built-in embedders
const DefaultEmbeddingDimension = 1536

// Embedder turns memory text into a vector stored alongside the memory
type Embedder interface {
	Embed(ctx context.Context, text string) (firestore.Vector32, error)
}

// PlaceholderEmbedder produces random vectors of a fixed length. It carries no
// semantic information; retrieval never compares them.
type PlaceholderEmbedder struct {
	Dimension int
}

func (e *PlaceholderEmbedder) Embed(ctx context.Context, text string) (firestore.Vector32, error) {
	dim := e.Dimension
	if dim <= 0 {
		dim = DefaultEmbeddingDimension
	}

	vec := make(firestore.Vector32, dim)
	for i := range vec {
		vec[i] = rand.Float32()
	}
	return vec, nil
}

// GeminiEmbedder produces real embeddings with a Gemini embedding model
type GeminiEmbedder struct {
	gemini    adapter.Gemini
	dimension int
}

// NewGeminiEmbedder creates an Embedder backed by Gemini
func NewGeminiEmbedder(gemini adapter.Gemini, dimension int) *GeminiEmbedder {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &GeminiEmbedder{gemini: gemini, dimension: dimension}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) (firestore.Vector32, error) {
	values, err := e.gemini.Embedding(ctx, text, e.dimension)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed memory text")
	}
	return firestore.Vector32(values), nil
}
