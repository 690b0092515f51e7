package rag

import "context"

// Embedder turns texts into vectors, one per input, all of the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Retriever returns the k stored chunks most similar to query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextSplitter breaks text into bounded, overlapping chunks.
type TextSplitter interface {
	Split(text string) ([]string, error)
}
